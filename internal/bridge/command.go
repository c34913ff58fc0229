package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"keylight2mqtt/internal/device"
	"keylight2mqtt/internal/infrastructure/config"
	"keylight2mqtt/internal/infrastructure/mqtt"
)

// Command field names as they appear in topics and payloads.
const (
	FieldPower      = "power"
	FieldColor      = "color"
	FieldBrightness = "brightness"
)

// Command is a parsed instruction for one or all lights.
type Command struct {
	// Serial targets one device. Empty means every registered device.
	Serial string

	// State holds the fields the command sets. Always at least one
	// field.
	State device.State
}

// Broadcast reports whether the command targets all devices.
func (c Command) Broadcast() bool {
	return c.Serial == ""
}

// Parser turns MQTT command messages into Commands.
//
// Topic grammar under the base topic B:
//
//	B/set/<field>           broadcast
//	B/set/<serial>/<field>  targeted
//
// The payload is either a bare scalar bound to the topic's field, or a
// JSON object carrying any subset of the fields. Out-of-range colour
// and brightness values are clamped under PolicyClamp and rejected
// with ErrOutOfRange under PolicyReject.
type Parser struct {
	topics mqtt.Topics
	policy string
}

// NewParser creates a Parser for the given base topic and range policy.
// An unknown policy falls back to clamping.
func NewParser(baseTopic, policy string) *Parser {
	if policy != config.PolicyReject {
		policy = config.PolicyClamp
	}
	return &Parser{
		topics: mqtt.Topics{Base: baseTopic},
		policy: policy,
	}
}

// Parse decodes one MQTT message into a Command.
func (p *Parser) Parse(topic string, payload []byte) (Command, error) {
	segments, ok := p.topics.SplitCommand(topic)
	if !ok {
		return Command{}, fmt.Errorf("%w: %s", ErrUnrecognizedTopic, topic)
	}

	var serial, field string
	switch len(segments) {
	case 1:
		field = segments[0]
	case 2:
		serial = segments[0]
		field = segments[1]
	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnrecognizedTopic, topic)
	}

	if !validField(field) {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return Command{}, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}

	var (
		state device.State
		err   error
	)
	if trimmed[0] == '{' {
		state, err = p.parseObject(trimmed)
	} else {
		state, err = p.parseScalar(field, trimmed)
	}
	if err != nil {
		return Command{}, err
	}

	return Command{Serial: serial, State: state}, nil
}

// validField reports whether name is a known command field.
func validField(name string) bool {
	switch name {
	case FieldPower, FieldColor, FieldBrightness:
		return true
	}
	return false
}

// parseObject decodes a JSON object payload carrying any subset of
// fields.
func (p *Parser) parseObject(payload []byte) (device.State, error) {
	var obj struct {
		Power      *json.RawMessage `json:"power"`
		Color      *json.RawMessage `json:"color"`
		Brightness *json.RawMessage `json:"brightness"`
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&obj); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			return device.State{}, fmt.Errorf("%w: %v", ErrUnknownField, err)
		}
		return device.State{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var state device.State

	if obj.Power != nil {
		on, err := parsePowerJSON(*obj.Power)
		if err != nil {
			return device.State{}, err
		}
		state.On = device.Bool(on)
	}
	if obj.Color != nil {
		kelvin, err := parseIntJSON(FieldColor, *obj.Color)
		if err != nil {
			return device.State{}, err
		}
		kelvin, err = p.ranged(FieldColor, kelvin)
		if err != nil {
			return device.State{}, err
		}
		state.Temperature = device.Int(kelvin)
	}
	if obj.Brightness != nil {
		pct, err := parseIntJSON(FieldBrightness, *obj.Brightness)
		if err != nil {
			return device.State{}, err
		}
		pct, err = p.ranged(FieldBrightness, pct)
		if err != nil {
			return device.State{}, err
		}
		state.Brightness = device.Int(pct)
	}

	if state.Empty() {
		return device.State{}, fmt.Errorf("%w: object sets no fields", ErrMalformedPayload)
	}
	return state, nil
}

// parseScalar decodes a bare payload bound to the topic's field.
func (p *Parser) parseScalar(field string, payload []byte) (device.State, error) {
	text := strings.TrimSpace(string(payload))

	switch field {
	case FieldPower:
		on, err := parsePowerText(text)
		if err != nil {
			return device.State{}, err
		}
		return device.State{On: device.Bool(on)}, nil

	case FieldColor:
		kelvin, err := parseIntText(FieldColor, text)
		if err != nil {
			return device.State{}, err
		}
		kelvin, err = p.ranged(FieldColor, kelvin)
		if err != nil {
			return device.State{}, err
		}
		return device.State{Temperature: device.Int(kelvin)}, nil

	case FieldBrightness:
		pct, err := parseIntText(FieldBrightness, text)
		if err != nil {
			return device.State{}, err
		}
		pct, err = p.ranged(FieldBrightness, pct)
		if err != nil {
			return device.State{}, err
		}
		return device.State{Brightness: device.Int(pct)}, nil
	}

	return device.State{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// parsePowerText decodes the textual power encodings.
func parsePowerText(text string) (bool, error) {
	switch strings.ToLower(strings.Trim(text, `"`)) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: power value %q", ErrMalformedPayload, text)
}

// parsePowerJSON decodes a JSON power value: boolean, string or 0/1.
func parsePowerJSON(raw json.RawMessage) (bool, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("%w: power: %v", ErrMalformedPayload, err)
	}

	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		return parsePowerText(val)
	case float64:
		switch val {
		case 1:
			return true, nil
		case 0:
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: power value %s", ErrMalformedPayload, raw)
}

// parseIntText decodes an integer-valued scalar. Numeric strings and
// integer-valued floats are accepted.
func parseIntText(field, text string) (int, error) {
	text = strings.Trim(text, `"`)

	if n, err := strconv.Atoi(text); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%w: %s value %q", ErrMalformedPayload, field, text)
	}
	return int(f), nil
}

// parseIntJSON decodes a JSON integer value: number or numeric string.
func parseIntJSON(field string, raw json.RawMessage) (int, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, field, err)
	}

	switch val := v.(type) {
	case float64:
		if val != float64(int(val)) {
			return 0, fmt.Errorf("%w: %s value %s", ErrMalformedPayload, field, raw)
		}
		return int(val), nil
	case string:
		return parseIntText(field, val)
	}
	return 0, fmt.Errorf("%w: %s value %s", ErrMalformedPayload, field, raw)
}

// ranged enforces the field's range under the configured policy.
func (p *Parser) ranged(field string, value int) (int, error) {
	var lo, hi int
	switch field {
	case FieldColor:
		lo, hi = device.MinTemperature, device.MaxTemperature
	case FieldBrightness:
		lo, hi = device.MinBrightness, device.MaxBrightness
	default:
		return value, nil
	}

	if value >= lo && value <= hi {
		return value, nil
	}

	if p.policy == config.PolicyReject {
		return 0, fmt.Errorf("%w: %s %d not in [%d, %d]", ErrOutOfRange, field, value, lo, hi)
	}

	if value < lo {
		return lo, nil
	}
	return hi, nil
}
