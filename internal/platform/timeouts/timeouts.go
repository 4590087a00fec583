// Package timeouts defines shared timeout constants used across the service.
// Centralizing these values keeps the HTTP and websocket boundaries in sync
// and makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Request caps the time allowed for a single API request against storage.
const Request = 10 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// InviteSweep is the interval between invite expiry sweeps.
const InviteSweep = time.Minute
