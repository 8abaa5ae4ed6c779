package models

import "time"

const (
	// DefaultRetryCeiling is the number of transient delivery failures an
	// operation survives before it is marked failed.
	DefaultRetryCeiling = 5

	// DefaultSyncInterval is the periodic drain timer while online.
	DefaultSyncInterval = 30 * time.Second

	// DefaultHealthInterval is the background scheduler probe interval.
	DefaultHealthInterval = 30 * time.Second

	// DefaultConnectivityInterval is the reachability poll interval.
	DefaultConnectivityInterval = 10 * time.Second

	// DefaultDeliveryTimeout bounds a single backend delivery attempt.
	DefaultDeliveryTimeout = 15 * time.Second
)
