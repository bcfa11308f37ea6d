package session

import (
	"errors"
	"testing"
)

func TestDecodeLevel(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    float64
		wantErr bool
	}{
		{name: "plain", payload: "57.3", want: 57.3},
		{name: "integer", payload: "100", want: 100},
		{name: "negative clamped", payload: "-3", want: 0},
		{name: "overflow clamped", payload: "250.1", want: 100},
		{name: "whitespace", payload: "\t12.5\n", want: 12.5},
		{name: "non-numeric", payload: "abc", wantErr: true},
		{name: "empty", payload: "", wantErr: true},
		{name: "nan", payload: "nan", wantErr: true},
		{name: "negative infinity", payload: "-Inf", wantErr: true},
		{name: "trailing junk", payload: "42x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(TopicLevel, []byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPayload) {
					t.Fatalf("Decode() error = %v, want ErrInvalidPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if msg.Kind != MessageLevel {
				t.Fatalf("Decode() kind = %v, want MessageLevel", msg.Kind)
			}
			if msg.Level != tt.want {
				t.Errorf("Decode() level = %v, want %v", msg.Level, tt.want)
			}
		})
	}
}

func TestDecodeChannel(t *testing.T) {
	tests := []struct {
		topic   string
		channel Channel
		payload string
		wantOn  bool
	}{
		{TopicPower1, ChannelPower1, "on", true},
		{TopicPower2, ChannelPower2, "ON", true},
		{TopicPower3, ChannelPower3, "On", true},
		{TopicPump, ChannelPump, "off", false},
		{TopicPump, ChannelPump, "anything else", false},
		{TopicPump, ChannelPump, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic+" "+tt.payload, func(t *testing.T) {
			msg, err := Decode(tt.topic, []byte(tt.payload))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if msg.Kind != MessageChannel {
				t.Fatalf("Decode() kind = %v, want MessageChannel", msg.Kind)
			}
			if msg.Channel != tt.channel {
				t.Errorf("Decode() channel = %q, want %q", msg.Channel, tt.channel)
			}
			if msg.On != tt.wantOn {
				t.Errorf("Decode() on = %v, want %v", msg.On, tt.wantOn)
			}
		})
	}
}

func TestDecodeMode(t *testing.T) {
	tests := []struct {
		payload string
		want    Mode
		wantErr bool
	}{
		{payload: "manual", want: ModeManual},
		{payload: "automatic", want: ModeAutomatic},
		{payload: "AUTOMATIC", want: ModeAutomatic},
		{payload: " Manual ", want: ModeManual},
		{payload: "auto", wantErr: true},
		{payload: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("payload "+tt.payload, func(t *testing.T) {
			msg, err := Decode(TopicMode, []byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPayload) {
					t.Fatalf("Decode() error = %v, want ErrInvalidPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if msg.Kind != MessageMode {
				t.Fatalf("Decode() kind = %v, want MessageMode", msg.Kind)
			}
			if msg.Mode != tt.want {
				t.Errorf("Decode() mode = %q, want %q", msg.Mode, tt.want)
			}
		})
	}
}

func TestDecodeUnknownTopic(t *testing.T) {
	for _, topic := range []string{"/levels", "/power4", "", "/mode/x", "level"} {
		msg, err := Decode(topic, []byte("on"))
		if err != nil {
			t.Errorf("Decode(%q) error = %v, want nil", topic, err)
		}
		if msg.Kind != MessageUnknown {
			t.Errorf("Decode(%q) kind = %v, want MessageUnknown", topic, msg.Kind)
		}
	}
}
