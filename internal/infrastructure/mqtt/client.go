package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/openfluids/tankwatch/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang with tankwatch-specific functionality.
//
// It owns the broker link lifecycle: asynchronous connection, automatic
// reconnection with exponential backoff, re-subscription on every reconnect,
// and delivery of inbound messages to registered handlers in arrival order.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions registered while disconnected are issued to the broker
//     as soon as the link comes up.
type Client struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig

	// subscriptions tracks registered subscriptions for (re-)subscription
	// whenever the connection is established.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	// state tracks the current connection lifecycle state.
	state   ConnectionState
	started bool
	closed  bool
	stateMu sync.RWMutex

	// Callbacks for connection events (optional).
	onConnect     func()
	onDisconnect  func(err error)
	onStateChange func(state ConnectionState)
	callbackMu    sync.RWMutex

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscription holds subscription details for (re-)subscription on connect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers for a single topic are invoked in arrival order; the client never
// reorders, coalesces, or deduplicates messages. Handlers should not block
// for extended periods.
//
// Parameters:
//   - topic: The topic the message was received on
//   - payload: The raw message payload bytes
//
// Returns:
//   - error: Logged but does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// New creates a client for the configured broker without connecting.
//
// Call Start to begin the asynchronous connection attempt. Subscriptions may
// be registered before Start; they are issued once the link comes up.
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//
// Returns:
//   - *Client: Client in StateDisconnected, ready to Start
func New(cfg config.MQTTConfig) *Client {
	opts := buildClientOptions(cfg)

	c := &Client{
		cfg:           cfg,
		options:       opts,
		subscriptions: make(map[string]subscription),
		state:         StateDisconnected,
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		c.setState(StateConnecting)
	})

	c.client = pahomqtt.NewClient(opts)
	return c
}

// Start begins an asynchronous connection attempt.
//
// It never blocks on network I/O: the state moves to StateConnecting
// immediately and the outcome is reported through the state-change and
// connect/disconnect callbacks. If the initial attempt fails or times out,
// the state moves to StateFaulted and the retry loop (exponential backoff,
// bounded by config) keeps re-attempting until Close is called.
//
// Returns:
//   - error: If the client was already started or has been closed
func (c *Client) Start() error {
	c.stateMu.Lock()
	if c.closed {
		c.stateMu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.stateMu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.stateMu.Unlock()

	c.setState(StateConnecting)

	token := c.client.Connect()
	go func() {
		// The connect token completes when paho's internal retry loop
		// succeeds. Flag the link as faulted if the first window passes
		// without an ack; the OnConnect handler flips it back when a later
		// attempt lands.
		if !token.WaitTimeout(defaultConnectTimeout) {
			c.faultIfConnecting()
			return
		}
		if err := token.Error(); err != nil {
			c.faultIfConnecting()
			if logger := c.getLogger(); logger != nil {
				logger.Warn("broker connection attempt failed", "error", err)
			}
		}
	}()

	return nil
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.setState(StateConnected)

	// Re-issue every registered subscription. The broker has no memory of
	// prior sessions, so this runs on the first connect and every reconnect.
	c.restoreSubscriptions()

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.setState(StateDisconnected)

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// setState records a state transition and notifies the observer, if any.
func (c *Client) setState(state ConnectionState) {
	c.stateMu.Lock()
	if c.state == state {
		c.stateMu.Unlock()
		return
	}
	c.state = state
	c.stateMu.Unlock()

	c.callbackMu.RLock()
	callback := c.onStateChange
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(state)
	}
}

// faultIfConnecting moves the state to StateFaulted unless a concurrent
// connect already succeeded.
func (c *Client) faultIfConnecting() {
	c.stateMu.Lock()
	if c.state != StateConnecting {
		c.stateMu.Unlock()
		return
	}
	c.state = StateFaulted
	c.stateMu.Unlock()

	c.callbackMu.RLock()
	callback := c.onStateChange
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(StateFaulted)
	}
}

// restoreSubscriptions issues every registered subscription to the broker.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		token := c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
		if token.WaitTimeout(defaultPublishTimeout) && token.Error() != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("re-subscribe failed, will retry on next reconnect",
					"topic", sub.topic,
					"error", token.Error(),
				)
			}
		}
	}
}

// Close tears down the broker link for good.
//
// It stops the reconnect loop, waits briefly for pending operations, and
// moves to StateDisconnected. A closed client cannot be restarted.
//
// Returns:
//   - error: Always nil; kept for io.Closer symmetry with other components
func (c *Client) Close() error {
	c.stateMu.Lock()
	if c.closed {
		c.stateMu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	c.stateMu.Unlock()

	if started {
		// Disconnect with quiesce period for pending operations. This also
		// cancels paho's internal reconnect loop.
		c.client.Disconnect(defaultDisconnectQuiesce)
	}

	c.setState(StateDisconnected)
	return nil
}

// HealthCheck verifies the broker link is alive and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// State returns the current connection lifecycle state.
func (c *Client) State() ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether the link is currently up.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected && c.client.IsConnected()
}

// SetOnConnect sets a callback to be invoked when connection is established.
// This is called on initial connect and on every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback to be invoked when connection is lost.
// The error parameter describes why the connection was lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetOnStateChange sets a callback invoked on every connection state
// transition. Used by the presentation layer's connectivity indicator.
func (c *Client) SetOnStateChange(callback func(state ConnectionState)) {
	c.callbackMu.Lock()
	c.onStateChange = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("message handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("message handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
