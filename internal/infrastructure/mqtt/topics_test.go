package mqtt

import (
	"reflect"
	"testing"
)

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name: "CommandBroadcast",
			builder: func() string {
				return Topics{Base: "ElgatoKeyLights"}.CommandBroadcast()
			},
			expected: "ElgatoKeyLights/set/+",
		},
		{
			name: "CommandDevice",
			builder: func() string {
				return Topics{Base: "ElgatoKeyLights"}.CommandDevice()
			},
			expected: "ElgatoKeyLights/set/+/+",
		},
		{
			name: "DeviceState",
			builder: func() string {
				return Topics{Base: "ElgatoKeyLights"}.DeviceState("AB12C3D45678")
			},
			expected: "ElgatoKeyLights/status/AB12C3D45678",
		},
		{
			name: "BridgeStatus",
			builder: func() string {
				return Topics{Base: "ElgatoKeyLights"}.BridgeStatus()
			},
			expected: "ElgatoKeyLights/bridge/status",
		},
		{
			name: "BridgeHealth",
			builder: func() string {
				return Topics{Base: "ElgatoKeyLights"}.BridgeHealth()
			},
			expected: "ElgatoKeyLights/bridge/health",
		},
		{
			name: "CustomBase",
			builder: func() string {
				return Topics{Base: "office/lights"}.CommandBroadcast()
			},
			expected: "office/lights/set/+",
		},
		{
			name: "EmptyBaseUsesDefault",
			builder: func() string {
				return Topics{}.BridgeStatus()
			},
			expected: "ElgatoKeyLights/bridge/status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

func TestSplitCommand(t *testing.T) {
	topics := Topics{Base: "ElgatoKeyLights"}

	tests := []struct {
		name     string
		topic    string
		want     []string
		wantOK   bool
	}{
		{
			name:   "broadcast field",
			topic:  "ElgatoKeyLights/set/power",
			want:   []string{"power"},
			wantOK: true,
		},
		{
			name:   "per-device field",
			topic:  "ElgatoKeyLights/set/AB12C3D45678/brightness",
			want:   []string{"AB12C3D45678", "brightness"},
			wantOK: true,
		},
		{
			name:   "outside command prefix",
			topic:  "ElgatoKeyLights/status/AB12C3D45678",
			wantOK: false,
		},
		{
			name:   "wrong base",
			topic:  "OtherLights/set/power",
			wantOK: false,
		},
		{
			name:   "bare prefix",
			topic:  "ElgatoKeyLights/set/",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := topics.SplitCommand(tt.topic)
			if ok != tt.wantOK {
				t.Fatalf("SplitCommand(%q) ok = %v, want %v", tt.topic, ok, tt.wantOK)
			}
			if tt.wantOK && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitCommand(%q) = %v, want %v", tt.topic, got, tt.want)
			}
		})
	}
}
