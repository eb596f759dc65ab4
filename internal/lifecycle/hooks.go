package lifecycle

import (
	"context"
	"time"
)

// Hook describes a named shutdown hook. A positive Timeout bounds the hook
// independently of the overall shutdown deadline.
type Hook struct {
	Name    string
	Fn      func(ctx context.Context) error
	Timeout time.Duration
}
