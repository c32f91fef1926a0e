package shellbridge

import (
	"context"
)

// Exec runs a single command against a fresh engine and returns its
// result. The bridge is created, loaded, and torn down internally.
//
//	res, err := shellbridge.Exec(ctx, "SELECT 1;",
//		shellbridge.WithDatabase("app.db"))
//
// For multiple commands against the same engine state, use New and keep
// the bridge open between Run calls.
func Exec(ctx context.Context, text string, opts ...Option) (*Result, error) {
	b := New(opts...)
	defer func() { _ = b.Close() }()

	if err := b.Start(ctx); err != nil {
		return nil, err
	}

	if err := b.WaitReady(ctx); err != nil {
		return nil, err
	}

	return b.Run(ctx, text)
}
