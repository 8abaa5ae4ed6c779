package models

import "time"

// PermissionState is the notification permission decision of the platform.
type PermissionState string

const (
	PermissionUnset   PermissionState = "unset"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// BackgroundCapabilities are the feature flags the background alarm
// scheduler can currently guarantee. Each flag is toggled independently by
// health checks; none is derived from SyncStatus.
type BackgroundCapabilities struct {
	AlarmProcessing bool `json:"alarm_processing"`
	VoicePlayback   bool `json:"voice_playback"`
	DataStorage     bool `json:"data_storage"`
	BackgroundSync  bool `json:"background_sync"`
	Registered      bool `json:"registered"`
}

// BackgroundHealth is the result of the most recent scheduler probe.
type BackgroundHealth struct {
	Initialized            bool                   `json:"initialized"`
	NotificationPermission PermissionState        `json:"notification_permission"`
	ScheduledCount         int                    `json:"scheduled_count"`
	Capabilities           BackgroundCapabilities `json:"capabilities"`
	LastHealthCheck        *time.Time             `json:"last_health_check,omitempty"`
	Error                  string                 `json:"error,omitempty"`
}

// Equal reports whether two health snapshots are identical apart from the
// check timestamp, which advances on every probe.
func (h BackgroundHealth) Equal(other BackgroundHealth) bool {
	return h.Initialized == other.Initialized &&
		h.NotificationPermission == other.NotificationPermission &&
		h.ScheduledCount == other.ScheduledCount &&
		h.Capabilities == other.Capabilities &&
		h.Error == other.Error
}
