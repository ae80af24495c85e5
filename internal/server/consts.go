package server

import "time"

const (
	maxJSONBody     = 64 << 10
	shutdownTimeout = 10 * time.Second
	// visitors are swept for idle entries once the map reaches this size.
	limiterSweepAt = 1024
	corsMethods    = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
)
