// Package api implements the HTTP REST API and WebSocket server for tankwatch.
//
// This package provides:
//   - REST endpoints for reading dashboard state and issuing channel commands
//   - WebSocket hub for real-time state change broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//
// # Architecture
//
// The API server sits between dashboard clients and the control session.
// Commands flow through the session, which publishes them to the MQTT broker;
// authoritative state reports flow back through the session and are broadcast
// to WebSocket clients as events.
//
// # Graceful Degradation
//
// The server operates without the command log or telemetry. Reads, commands,
// and WebSocket connections work; only the history endpoint degrades.
package api
