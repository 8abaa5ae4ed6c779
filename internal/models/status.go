package models

import "time"

// SyncStatus is the single externally visible snapshot of the engine.
// Published values are copies; observers never share a mutable reference.
type SyncStatus struct {
	IsOnline       bool       `json:"is_online"`
	SyncInProgress bool       `json:"sync_in_progress"`
	PendingCount   int        `json:"pending_count"`
	InFlightCount  int        `json:"in_flight_count"`
	FailedCount    int        `json:"failed_count"`
	LastSync       *time.Time `json:"last_sync,omitempty"`
}

// Equal reports whether two snapshots describe the same state. Used by the
// publisher to suppress duplicate notifications.
func (s SyncStatus) Equal(other SyncStatus) bool {
	if s.IsOnline != other.IsOnline ||
		s.SyncInProgress != other.SyncInProgress ||
		s.PendingCount != other.PendingCount ||
		s.InFlightCount != other.InFlightCount ||
		s.FailedCount != other.FailedCount {
		return false
	}
	if (s.LastSync == nil) != (other.LastSync == nil) {
		return false
	}
	return s.LastSync == nil || s.LastSync.Equal(*other.LastSync)
}
