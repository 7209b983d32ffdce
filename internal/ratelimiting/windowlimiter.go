package ratelimiting

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// The operation could not finish before the deadline of the context, so it was not started
var ErrDeadlineTooClose = errors.New("deadline too close to run operation")

// Allows at most `limit` operations to finish within any `window`
//
// Used to stay polite towards upstream APIs with a request quota.
type WindowLimiter struct {
	limit     int
	window    time.Duration
	nowFunc   func() time.Time
	afterFunc func(time.Duration) <-chan time.Time

	slots chan struct{}

	mutex sync.Mutex
	// Completion times of the last `limit` operations, oldest first
	finished []time.Time
}

func NewWindowLimiter(
	limit int,
	window time.Duration,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
) *WindowLimiter {
	slots := make(chan struct{}, limit)
	finished := make([]time.Time, 0, limit+1)
	longAgo := nowFunc().Add(-window)
	for range limit {
		slots <- struct{}{}
		finished = append(finished, longAgo)
	}

	return &WindowLimiter{
		limit:     limit,
		window:    window,
		nowFunc:   nowFunc,
		afterFunc: afterFunc,

		slots:    slots,
		finished: finished,
	}
}

// Run the operation once the window allows it
//
// If the context has a deadline that would pass before the wait plus minOperationTime,
// ErrDeadlineTooClose is returned without waiting.
func (l *WindowLimiter) Do(ctx context.Context, minOperationTime time.Duration, operation func() error) error {
	select {
	case <-l.slots:
		defer func() {
			l.slots <- struct{}{}
		}()
	case <-ctx.Done():
		return ctx.Err()
	}

	oldest, wait, err := l.takeOldest(ctx, minOperationTime)
	if err != nil {
		return err
	}

	// Put back the timestamp we took unless the operation ran
	completedAt := oldest
	defer func() {
		l.insert(completedAt)
	}()

	if wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.afterFunc(wait):
		}
	}

	err = operation()
	completedAt = l.nowFunc()
	return err
}

func (l *WindowLimiter) takeOldest(ctx context.Context, minOperationTime time.Duration) (time.Time, time.Duration, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	oldest := l.finished[0]
	now := l.nowFunc()
	wait := l.window - now.Sub(oldest)

	if deadline, ok := ctx.Deadline(); ok {
		if max(wait, 0)+minOperationTime > deadline.Sub(now) {
			return time.Time{}, 0, ErrDeadlineTooClose
		}
	}

	l.finished = l.finished[1:]
	return oldest, wait, nil
}

func (l *WindowLimiter) insert(completedAt time.Time) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	i, _ := slices.BinarySearchFunc(l.finished, completedAt, func(a, b time.Time) int {
		return a.Compare(b)
	})
	l.finished = slices.Insert(l.finished, i, completedAt)
}
