package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines run, which
// catches leaked pollers.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// Pinger is an upstream that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck probes an upstream service.
func PingCheck(name string, p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return errors.Wrapf(p.Ping(ctx), "ping %s", name)
	}
}
