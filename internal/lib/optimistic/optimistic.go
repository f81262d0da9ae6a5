// Package optimistic applies a local change before the remote write that
// makes it durable, and compensates when that write fails.
package optimistic

import "context"

// Value is the read/write view of the piece of state being changed.
type Value[T any] struct {
	Get func() T
	Set func(T)
}

// Apply captures the prior value, installs next, awaits remote and restores
// the prior value if remote fails. It returns the remote error unchanged.
func Apply[T any](ctx context.Context, v Value[T], next T, remote func(context.Context, T) error) error {
	prev := v.Get()
	v.Set(next)

	if err := remote(ctx, next); err != nil {
		v.Set(prev)
		return err
	}

	return nil
}

// Update is Apply where the next value is derived from the current one.
func Update[T any](ctx context.Context, v Value[T], derive func(T) T, remote func(context.Context, T) error) error {
	return Apply(ctx, v, derive(v.Get()), remote)
}
