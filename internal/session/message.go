package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MessageKind identifies the typed variant of a decoded inbound message.
type MessageKind int

// Message kinds.
const (
	// MessageUnknown marks a topic outside the tank contract. Ignored.
	MessageUnknown MessageKind = iota

	// MessageLevel is a tank level reading from the level topic.
	MessageLevel

	// MessageChannel is an authoritative on/off report for one channel.
	MessageChannel

	// MessageMode is a control-mode report from the mode topic.
	MessageMode
)

// Message is the typed form of an inbound broker message. Exactly the fields
// implied by Kind are meaningful.
type Message struct {
	Kind    MessageKind
	Channel Channel // MessageChannel
	On      bool    // MessageChannel
	Level   float64 // MessageLevel, already clamped to [LevelMin, LevelMax]
	Mode    Mode    // MessageMode
}

// Decode converts a raw (topic, payload) pair into a typed Message.
//
// Dispatch is by exact topic match against the fixed topic table. Payload
// validation happens here so the session applies only well-formed values:
//
//   - level topic: payload must parse as a finite decimal number; the value
//     is clamped to [0,100]
//   - channel topics: "on" (case-insensitive, surrounding space ignored)
//     means on; every other payload means off and is never an error
//   - mode topic: payload must be "manual" or "automatic" (case-insensitive)
//
// Parameters:
//   - topic: The exact topic string from the broker
//   - payload: The raw payload bytes (plain UTF-8 text on tank topics)
//
// Returns:
//   - Message: Kind MessageUnknown for topics outside the contract
//   - error: ErrInvalidPayload (wrapped) when a known topic carries an
//     unparseable payload; the prior state must be retained in that case
func Decode(topic string, payload []byte) (Message, error) {
	switch topic {
	case TopicLevel:
		level, ok := parseLevel(payload)
		if !ok {
			return Message{}, fmt.Errorf("%w: level reading %q is not a number", ErrInvalidPayload, payload)
		}
		return Message{Kind: MessageLevel, Level: clampLevel(level)}, nil

	case TopicMode:
		mode, ok := parseMode(payload)
		if !ok {
			return Message{}, fmt.Errorf("%w: mode %q is neither %q nor %q", ErrInvalidPayload, payload, ModeManual, ModeAutomatic)
		}
		return Message{Kind: MessageMode, Mode: mode}, nil
	}

	if ch, ok := ChannelForTopic(topic); ok {
		return Message{Kind: MessageChannel, Channel: ch, On: parseOnOff(payload)}, nil
	}

	return Message{Kind: MessageUnknown}, nil
}

// parseLevel parses a decimal tank level reading.
// NaN and infinities are rejected; clamping them would invent a value the
// device never reported.
func parseLevel(payload []byte) (float64, bool) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// clampLevel bounds a level reading to the valid percentage range.
func clampLevel(value float64) float64 {
	if value < LevelMin {
		return LevelMin
	}
	if value > LevelMax {
		return LevelMax
	}
	return value
}

// parseOnOff interprets a channel payload. Only "on" (any case) switches a
// channel on; everything else, including garbage, reads as off.
func parseOnOff(payload []byte) bool {
	return strings.EqualFold(strings.TrimSpace(string(payload)), "on")
}

// parseMode interprets a mode payload.
func parseMode(payload []byte) (Mode, bool) {
	return ParseMode(string(payload))
}
