package oracle

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Static answers from a fixed table. It is used for offline runs and tests.
type Static struct {
	answers map[string]Answer
	// Delay simulates network latency; calls honor ctx while waiting.
	Delay time.Duration
	// Err, when set, is returned by every call.
	Err error

	calls atomic.Int64
	mu    sync.Mutex
	seen  []Request
}

// NewStatic builds a Static oracle from token -> alias pairs.
func NewStatic(aliases map[string]string) *Static {
	answers := make(map[string]Answer, len(aliases))
	for k, v := range aliases {
		answers[strings.ToLower(k)] = Answer{Alias: v}
	}
	return &Static{answers: answers}
}

func (s *Static) Suggest(ctx context.Context, req Request) (Response, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.seen = append(s.seen, Request{FileName: req.FileName, UnknownTokens: append([]string(nil), req.UnknownTokens...)})
	s.mu.Unlock()

	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}

	resp := Response{}
	for _, tok := range req.UnknownTokens {
		if a, ok := s.answers[strings.ToLower(tok)]; ok {
			resp[tok] = a
		}
	}
	return resp, nil
}

// Calls returns how many times Suggest ran.
func (s *Static) Calls() int {
	return int(s.calls.Load())
}

// Requests returns copies of the requests received so far.
func (s *Static) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.seen...)
}
