// Package database provides SQLite connection management for tankwatch.
//
// The database holds the operator command log only — device state lives in
// memory in the session and is deliberately NOT persisted across restarts.
//
// It handles connection lifecycle, WAL mode and busy-timeout pragmas,
// versioned schema migrations, and health checks.
package database
