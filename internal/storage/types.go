package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Delivery records one work item outcome.
// Keep it compact and schema-stable.
type Delivery struct {
	At          time.Time `json:"at"`
	RunID       string    `json:"run_id"`
	Destination string    `json:"destination"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	TookMS      int64     `json:"took_ms"`
}
