// Package background runs named fire-and-forget operations. A spawned
// operation outlives the request that started it, carries its own deadline,
// and reports failure to the log instead of to the caller.
package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc/panics"
)

// DefaultTimeout bounds a background operation that received no explicit
// deadline from its spawner.
const DefaultTimeout = 30 * time.Second

// Go spawns fn on its own goroutine with a fresh context detached from the
// caller's. Panics are caught and logged together with any returned error;
// nothing propagates back. The returned op id identifies the operation in
// the logs.
func Go(label string, fn func(ctx context.Context) error) string {
	opID := ulid.Make().String()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
		defer cancel()

		var (
			catcher panics.Catcher
			err     error
		)
		catcher.Try(func() {
			err = fn(ctx)
		})
		if recovered := catcher.Recovered(); recovered != nil {
			slog.Error("background operation panicked", "op", label, "op_id", opID, "panic", recovered.String())
			return
		}
		if err != nil {
			slog.Error("background operation failed", "op", label, "op_id", opID, "error", err)
		}
	}()
	return opID
}
