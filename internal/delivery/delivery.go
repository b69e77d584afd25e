// Package delivery defines the transports the application serves.
package delivery

import "context"

// Delivery is a long-running transport started by the application after all hooks ran.
type Delivery interface {
	Serve(ctx context.Context) error
}
