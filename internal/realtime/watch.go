package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Watch keeps deliver fed with fresh snapshots of topic: once immediately, then
// after every change. Deliveries never overlap. A failed reload is delivered as an
// error and the subscription stays open; a lost subscription is delivered as an
// error wrapping ErrSubscriptionLost and nothing follows it.
func Watch[T any](
	ctx context.Context,
	feed Feed,
	topic Topic,
	load func(context.Context) (T, error),
	deliver func(T, error),
) (Unsubscribe, error) {
	var mu sync.Mutex
	refresh := func() {
		mu.Lock()
		defer mu.Unlock()
		v, err := load(ctx)
		deliver(v, err)
	}

	lost := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		var zero T
		if !errors.Is(err, ErrSubscriptionLost) {
			err = fmt.Errorf("%w: %w", ErrSubscriptionLost, err)
		}
		deliver(zero, err)
	}

	// Subscribe before the first load so a write landing in between is not missed.
	// Holding mu keeps early notifications behind the initial snapshot.
	mu.Lock()
	unsubscribe, err := feed.Subscribe(ctx, topic, refresh, lost)
	if err != nil {
		mu.Unlock()
		return nil, err
	}

	v, err := load(ctx)
	if err != nil {
		mu.Unlock()
		unsubscribe()
		return nil, fmt.Errorf("failed to load initial %s snapshot: %w", topic, err)
	}
	deliver(v, nil)
	mu.Unlock()

	return unsubscribe, nil
}
