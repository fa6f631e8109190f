package common

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ternarybob/arbor"
)

// SafeGo runs fn in a goroutine with panic recovery. Panics are logged but
// never crash the process; use this for any long-lived background work
// (crawl workers, broadcast loops, cron jobs).
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer recoverAndLog(logger, name)
		fn()
	}()
}

// SafeGoWithContext is SafeGo for a goroutine that should not start once
// ctx is already cancelled.
func SafeGoWithContext(ctx context.Context, logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer recoverAndLog(logger, name)
		select {
		case <-ctx.Done():
			return
		default:
		}
		fn()
	}()
}

func recoverAndLog(logger arbor.ILogger, name string) {
	if r := recover(); r != nil {
		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		if logger != nil {
			logger.Error().
				Str("goroutine", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(buf[:n])).
				Msg("recovered from panic in goroutine")
		}
	}
}
