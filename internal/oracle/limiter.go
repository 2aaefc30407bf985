package oracle

import "context"

// semaphore implements a counting semaphore for oracle concurrency
type semaphore struct {
	permits chan struct{}
}

// newSemaphore creates a semaphore with the given number of permits
func newSemaphore(permits int) *semaphore {
	s := &semaphore{
		permits: make(chan struct{}, permits),
	}
	for i := 0; i < permits; i++ {
		s.permits <- struct{}{}
	}
	return s
}

// Acquire acquires a permit, blocking until one is free or ctx is done
func (s *semaphore) Acquire(ctx context.Context) error {
	select {
	case <-s.permits:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a permit back to the semaphore
func (s *semaphore) Release() {
	select {
	case s.permits <- struct{}{}:
	default:
	}
}

// Limited bounds the number of in-flight calls to the wrapped oracle.
type Limited struct {
	next Oracle
	sem  *semaphore
}

// NewLimited wraps next so at most maxInFlight calls run at once.
// maxInFlight below 1 is treated as 1.
func NewLimited(next Oracle, maxInFlight int) *Limited {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Limited{next: next, sem: newSemaphore(maxInFlight)}
}

func (l *Limited) Suggest(ctx context.Context, req Request) (Response, error) {
	if err := l.sem.Acquire(ctx); err != nil {
		return nil, err
	}
	defer l.sem.Release()
	return l.next.Suggest(ctx, req)
}
