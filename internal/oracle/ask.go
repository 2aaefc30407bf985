package oracle

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"
)

// AskOptions controls one fallback round.
type AskOptions struct {
	Timeout time.Duration
	// MinConfidence drops answers that state a lower confidence.
	MinConfidence float64
	// RetryMissing sends one follow-up request for tokens the first reply omitted.
	RetryMissing bool
	Logger       *slog.Logger
}

// Outcome describes what happened during Ask.
type Outcome struct {
	Calls   int      `json:"calls"`
	Missing []string `json:"missing,omitempty"`
	Dropped []string `json:"dropped,omitempty"`
	Err     error    `json:"-"`
}

// Ask calls o for req.UnknownTokens and aligns the reply to the request.
// Failures yield an empty response; the error is reported in Outcome.
func Ask(ctx context.Context, o Oracle, req Request, opts AskOptions) (Response, Outcome) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var out Outcome
	result := Response{}
	if o == nil || len(req.UnknownTokens) == 0 {
		return result, out
	}

	pending := req.UnknownTokens
	rounds := 1
	if opts.RetryMissing {
		rounds = 2
	}
	for round := 0; round < rounds && len(pending) > 0; round++ {
		resp, err := suggest(ctx, o, Request{FileName: req.FileName, UnknownTokens: pending}, opts.Timeout)
		out.Calls++
		if err != nil {
			out.Err = err
			logger.Warn("Oracle call failed",
				"name", req.FileName,
				"tokens", len(pending),
				"code", string(Classify(err)),
				"error", err,
			)
			break
		}
		aligned, missing, dropped := Align(pending, resp, opts.MinConfidence)
		for k, a := range aligned {
			result[k] = a
		}
		out.Dropped = append(out.Dropped, dropped...)
		pending = missing
	}

	if len(pending) > 0 && out.Err == nil {
		out.Missing = pending
		logger.Warn("Oracle reply is missing tokens",
			"name", req.FileName,
			"requested", len(req.UnknownTokens),
			"missing", strings.Join(pending, ","),
		)
	}
	return result, out
}

func suggest(ctx context.Context, o Oracle, req Request, timeout time.Duration) (Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return o.Suggest(ctx, req)
}

// Align keeps answers for requested tokens only, matching keys case-insensitively.
// It returns the requested tokens left unanswered and those whose answer was
// below minConfidence.
func Align(requested []string, resp Response, minConfidence float64) (Response, []string, []string) {
	byKey := make(map[string]Answer, len(resp))
	for k, a := range resp {
		byKey[strings.ToLower(strings.TrimSpace(k))] = a
	}

	aligned := Response{}
	var missing, dropped []string
	for _, tok := range requested {
		key := strings.ToLower(tok)
		a, ok := byKey[key]
		a.Alias = strings.TrimSpace(a.Alias)
		switch {
		case !ok || a.Alias == "":
			missing = append(missing, tok)
		case a.Confidence > 0 && a.Confidence < minConfidence:
			dropped = append(dropped, tok)
		default:
			aligned[key] = a
		}
	}
	return aligned, missing, dropped
}
