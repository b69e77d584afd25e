// Package lifecycle holds timing constants shared by fx start/stop hooks.
package lifecycle

import "time"

// DefaultTimeout bounds every start and stop hook (DB ping, redis ping, server shutdown).
const DefaultTimeout = 10 * time.Second
