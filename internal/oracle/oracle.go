// Package oracle is the contract for the external translation service
// consulted for tokens the dictionary cannot resolve.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	nlerrors "namelens/internal/errors"
)

// Request is what the oracle is asked: the name for context and the tokens
// it should translate.
type Request struct {
	FileName      string   `json:"fileName"`
	UnknownTokens []string `json:"unknownTokens"`
}

// Answer is one suggested alias. Confidence zero means "not stated".
type Answer struct {
	Alias      string  `json:"alias"`
	Confidence float64 `json:"confidence,omitempty"`
}

// UnmarshalJSON accepts either a bare alias string or an {alias, confidence} object.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		a.Confidence = 0
		return json.Unmarshal(data, &a.Alias)
	}
	type plain Answer
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Answer(p)
	return nil
}

// Response maps requested tokens to answers. It may hold a subset of the
// request or be empty.
type Response map[string]Answer

// Aliases flattens the response to token -> alias.
func (r Response) Aliases() map[string]string {
	out := make(map[string]string, len(r))
	for k, a := range r {
		out[k] = a.Alias
	}
	return out
}

// Oracle suggests aliases for unknown tokens. Implementations must honor
// ctx cancellation.
type Oracle interface {
	Suggest(ctx context.Context, req Request) (Response, error)
}

// Func adapts a function to Oracle.
type Func func(ctx context.Context, req Request) (Response, error)

func (f Func) Suggest(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

var (
	// ErrRateLimited reports an upstream 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrResponseInvalid reports a reply that is not a token map.
	ErrResponseInvalid = errors.New("response invalid")
)

// ParseResponse decodes a JSON object reply, tolerating a surrounding
// markdown code fence.
func ParseResponse(content string) (Response, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return Response{}, nil
	}
	var resp Response
	if err := json.Unmarshal([]byte(s), &resp); err != nil {
		return nil, nlerrors.New(nlerrors.OracleMalformed, "oracle reply is not a token map",
			fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	if resp == nil {
		resp = Response{}
	}
	return resp, nil
}

// Classify maps a Suggest error onto the failure taxonomy.
func Classify(err error) nlerrors.ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded), nlerrors.HasCode(err, nlerrors.OracleTimeout):
		return nlerrors.OracleTimeout
	case errors.Is(err, ErrResponseInvalid), nlerrors.HasCode(err, nlerrors.OracleMalformed):
		return nlerrors.OracleMalformed
	}
	return nlerrors.OracleUnavailable
}
