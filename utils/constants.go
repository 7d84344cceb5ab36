// File: utils/constants.go
package utils

import "time"

// FlowSessionPrefix is the prefix used for Redis flow session keys.
const FlowSessionPrefix = "flow:"

// FlowSessionTTL is the time-to-live for booking flow sessions.
const FlowSessionTTL = 30 * time.Minute
