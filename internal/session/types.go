package session

import (
	"strings"

	"github.com/openfluids/tankwatch/internal/infrastructure/mqtt"
)

// Channel identifies one controllable actuator. The set is fixed and closed;
// values outside it are rejected by the write path and ignored on dispatch.
type Channel string

// The four actuator channels.
const (
	ChannelPower1 Channel = "power1"
	ChannelPower2 Channel = "power2"
	ChannelPower3 Channel = "power3"
	ChannelPump   Channel = "pump"
)

// Channels returns the closed set of actuator channels in display order.
func Channels() []Channel {
	return []Channel{ChannelPower1, ChannelPower2, ChannelPower3, ChannelPump}
}

// ParseChannel converts a string to a Channel.
//
// Returns:
//   - Channel: The matching channel
//   - bool: false if the string names no known channel
func ParseChannel(s string) (Channel, bool) {
	switch Channel(s) {
	case ChannelPower1, ChannelPower2, ChannelPower3, ChannelPump:
		return Channel(s), true
	default:
		return "", false
	}
}

// Mode is the control-authority flag: it determines whether the operator
// (manual) or an external automation agent (automatic) may command channels.
type Mode string

// Control modes. The wire payloads on the mode topic use these exact strings.
const (
	ModeManual    Mode = "manual"
	ModeAutomatic Mode = "automatic"
)

// ParseMode converts a string to a Mode. Matching is case-insensitive and
// ignores surrounding whitespace.
//
// Returns:
//   - Mode: The matching mode
//   - bool: false if the string names no known mode
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeManual:
		return ModeManual, true
	case ModeAutomatic:
		return ModeAutomatic, true
	default:
		return "", false
	}
}

// Tank level bounds, in percent. Inbound readings are clamped to this range.
const (
	LevelMin = 0.0
	LevelMax = 100.0
)

// Snapshot is an immutable copy of the session state handed to the
// presentation layer. Mutating a snapshot has no effect on the session.
type Snapshot struct {
	Connection mqtt.ConnectionState `json:"-"`
	Mode       Mode                 `json:"mode"`
	Channels   map[Channel]bool     `json:"channels"`
	TankLevel  float64              `json:"tank_level"`
}

// ConnectionName returns the connection state as its wire/JSON string.
func (s Snapshot) ConnectionName() string {
	return s.Connection.String()
}

// EventKind classifies a state transition applied by the session.
type EventKind string

// Event kinds.
const (
	EventLevel   EventKind = "level"
	EventChannel EventKind = "channel"
	EventMode    EventKind = "mode"
)

// Source identifies who caused a state transition.
type Source string

// Event sources.
const (
	// SourceOperator marks optimistic local writes from the operator.
	SourceOperator Source = "operator"

	// SourceBroker marks authoritative reports received from the broker.
	SourceBroker Source = "broker"
)

// Event describes a single state transition applied by the session. It is
// delivered to the observer registered with SetOnEvent after the transition
// has been applied; Snapshot reflects the post-transition state.
type Event struct {
	Kind     EventKind `json:"kind"`
	Channel  Channel   `json:"channel,omitempty"`
	On       bool      `json:"on,omitempty"`
	Level    float64   `json:"level,omitempty"`
	Mode     Mode      `json:"mode,omitempty"`
	Source   Source    `json:"source"`
	Snapshot Snapshot  `json:"snapshot"`
}
