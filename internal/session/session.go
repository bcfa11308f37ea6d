package session

import (
	"fmt"
	"sync"

	"github.com/openfluids/tankwatch/internal/infrastructure/mqtt"
)

// Broker is the narrow slice of the connection manager the session consumes.
// *mqtt.Client satisfies it; tests inject a fake. The session never touches
// the underlying broker handle directly.
type Broker interface {
	// Subscribe registers a handler for a topic. Registering while the link
	// is down is valid; the connection manager issues the subscription on
	// connect.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Publish enqueues a payload to a topic. It must not block on network
	// I/O: delivery outcome is the implementation's to report. Returns
	// mqtt.ErrNotConnected when the link is down; the session logs this and
	// carries on.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// State reports the current connection lifecycle state.
	State() mqtt.ConnectionState
}

// Logger defines the logging interface used by the Session.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Session is the control session: the canonical view of the tank device and
// the single write path to it.
//
// It owns the device state (channel switches plus tank level) and the
// control mode, arbitrates write authority between the operator and the
// external automation agent, turns inbound broker messages into state
// transitions, and turns operator intents into publishes.
//
// Reconciliation rule: operator writes are optimistic and provisional; an
// inbound report on the same topic is ground truth and overwrites them
// unconditionally, last write by arrival wins.
//
// Thread Safety:
//   - All methods are safe for concurrent use. State mutations are
//     serialised on an internal mutex; no caller ever observes a
//     half-applied transition.
type Session struct {
	broker Broker
	qos    byte

	mu        sync.Mutex
	mode      Mode
	channels  map[Channel]bool
	tankLevel float64
	closed    bool

	// onEvent observes applied transitions (optional, set via SetOnEvent).
	onEvent    func(Event)
	callbackMu sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a session with default state: every channel off, tank level 0,
// manual mode. No broker traffic happens until Start.
//
// Parameters:
//   - broker: Connection manager (or fake) the session publishes through
//   - qos: QoS level for session publishes and subscriptions
//
// Returns:
//   - *Session: Session ready to Start
func New(broker Broker, qos byte) *Session {
	channels := make(map[Channel]bool, len(Channels()))
	for _, ch := range Channels() {
		channels[ch] = false
	}

	return &Session{
		broker:   broker,
		qos:      qos,
		mode:     ModeManual,
		channels: channels,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the session.
func (s *Session) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// getLogger returns the current logger.
func (s *Session) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// SetOnEvent sets a callback invoked after every applied state transition.
// The callback receives the transition and a post-transition snapshot. It is
// called on the mutating goroutine and must not block.
func (s *Session) SetOnEvent(callback func(Event)) {
	s.callbackMu.Lock()
	s.onEvent = callback
	s.callbackMu.Unlock()
}

// emit delivers an event to the observer, if any.
func (s *Session) emit(evt Event) {
	s.callbackMu.RLock()
	callback := s.onEvent
	s.callbackMu.RUnlock()
	if callback != nil {
		callback(evt)
	}
}

// Start subscribes the session to every topic in the tank contract.
//
// Subscriptions registered here survive reconnects: the connection manager
// re-issues them each time the link comes up.
//
// Returns:
//   - error: If any subscription cannot be registered
func (s *Session) Start() error {
	for _, topic := range SubscribedTopics() {
		if err := s.broker.Subscribe(topic, s.qos, s.HandleMessage); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	return nil
}

// Close stops the session's write path. Subsequent SetChannel/SetMode calls
// return ErrSessionClosed; inbound messages are no longer applied. The
// broker link itself is owned and closed by the connection manager.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// SetChannel applies operator intent to switch a channel on or off.
//
// Precondition: manual mode. In automatic mode the call is rejected with
// ErrAutomationActive regardless of what the caller's UI believed; the
// session never trusts the caller to have checked.
//
// On success the local state is updated optimistically before any broker
// traffic (the broker sends no distinguishable ack, so the session's own
// publish is locally authoritative), then exactly one publish of "on"/"off"
// is issued to the channel topic. A failed publish, including while
// disconnected, is logged and the optimistic state kept; the next inbound
// report on the topic reconciles it.
//
// Parameters:
//   - ch: Channel to switch
//   - on: Desired state
//
// Returns:
//   - error: ErrUnknownChannel, ErrAutomationActive, ErrSessionClosed, or nil
func (s *Session) SetChannel(ch Channel, on bool) error {
	topic, ok := TopicForChannel(ch)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.mode == ModeAutomatic {
		s.mu.Unlock()
		return ErrAutomationActive
	}
	s.channels[ch] = on
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.broker.Publish(topic, []byte(onOffPayload(on)), s.qos, false); err != nil {
		s.getLogger().Warn("channel command publish failed, optimistic state kept",
			"channel", ch,
			"on", on,
			"error", err,
		)
	}

	s.emit(Event{Kind: EventChannel, Channel: ch, On: on, Source: SourceOperator, Snapshot: snap})
	return nil
}

// SetMode applies operator intent to hand control to the automation agent
// (automatic) or take it back (manual).
//
// Always allowed regardless of current mode. The local mode flips
// immediately and the new mode is published once to the mode topic so the
// automation agent observes the switch. This is a command, not a query: a
// failed publish is logged and never rolls back the local mode.
//
// Parameters:
//   - automatic: true hands control to automation, false takes it back
//
// Returns:
//   - error: ErrSessionClosed, or nil
func (s *Session) SetMode(automatic bool) error {
	mode := ModeManual
	if automatic {
		mode = ModeAutomatic
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mode = mode
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.broker.Publish(TopicMode, []byte(mode), s.qos, false); err != nil {
		s.getLogger().Warn("mode publish failed, local mode kept",
			"mode", mode,
			"error", err,
		)
	}

	s.emit(Event{Kind: EventMode, Mode: mode, Source: SourceOperator, Snapshot: snap})
	return nil
}

// HandleMessage dispatches one inbound broker message.
//
// Messages are applied in the order the connection manager delivers them;
// duplicates and stale values are applied as-is (last write by arrival
// wins). Channel reports apply unconditionally, in either mode: they are
// ground truth from the device side and overwrite any optimistic local
// write. Mode reports apply the same last-write-wins rule. Malformed
// payloads and unknown topics are ignored, prior state retained; no inbound
// message can fail the session.
//
// Parameters:
//   - topic: The exact topic string from the broker
//   - payload: The raw payload bytes
//
// Returns:
//   - error: Always nil; rejected messages are logged at debug level
func (s *Session) HandleMessage(topic string, payload []byte) error {
	msg, err := Decode(topic, payload)
	if err != nil {
		s.getLogger().Debug("ignoring malformed message",
			"topic", topic,
			"payload", string(payload),
			"error", err,
		)
		return nil
	}

	switch msg.Kind {
	case MessageLevel:
		s.applyLevel(msg.Level)
	case MessageChannel:
		s.applyChannel(msg.Channel, msg.On)
	case MessageMode:
		s.applyMode(msg.Mode)
	case MessageUnknown:
		s.getLogger().Debug("ignoring message on unrecognised topic", "topic", topic)
	}
	return nil
}

// applyLevel records an authoritative tank level reading.
func (s *Session) applyLevel(level float64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.tankLevel = level
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(Event{Kind: EventLevel, Level: level, Source: SourceBroker, Snapshot: snap})
}

// applyChannel records an authoritative channel report, overwriting any
// optimistic local state.
func (s *Session) applyChannel(ch Channel, on bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.channels[ch] = on
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(Event{Kind: EventChannel, Channel: ch, On: on, Source: SourceBroker, Snapshot: snap})
}

// applyMode records a mode report from the broker. Arrival order decides:
// whoever wrote the mode topic last, operator or automation agent, wins.
func (s *Session) applyMode(mode Mode) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mode = mode
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(Event{Kind: EventMode, Mode: mode, Source: SourceBroker, Snapshot: snap})
}

// Snapshot returns an immutable copy of the current session state together
// with the live connection state. The presentation layer reads this and
// nothing else.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// snapshotLocked builds a snapshot. Caller must hold s.mu.
func (s *Session) snapshotLocked() Snapshot {
	channels := make(map[Channel]bool, len(s.channels))
	for ch, on := range s.channels {
		channels[ch] = on
	}
	return Snapshot{
		Connection: s.broker.State(),
		Mode:       s.mode,
		Channels:   channels,
		TankLevel:  s.tankLevel,
	}
}

// onOffPayload returns the wire payload for a channel state.
func onOffPayload(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
