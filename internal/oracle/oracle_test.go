package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nlerrors "namelens/internal/errors"
)

func TestParseResponse(t *testing.T) {
	resp, err := ParseResponse("```json\n{\"xml\": \"可扩展标记语言\", \"dom\": {\"alias\": \"文档对象模型\", \"confidence\": 0.6}}\n```")
	require.NoError(t, err)
	assert.Equal(t, "可扩展标记语言", resp["xml"].Alias)
	assert.Equal(t, 0.0, resp["xml"].Confidence)
	assert.InDelta(t, 0.6, resp["dom"].Confidence, 1e-9)

	empty, err := ParseResponse("  ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseResponse(`["xml"]`)
	require.Error(t, err)
	assert.Equal(t, nlerrors.OracleMalformed, Classify(err))
}

func TestAlign(t *testing.T) {
	resp := Response{
		"XML":   {Alias: "可扩展标记语言"},
		"dom":   {Alias: "文档对象模型", Confidence: 0.3},
		"extra": {Alias: "额外"},
		"blank": {Alias: "  "},
	}
	aligned, missing, dropped := Align([]string{"xml", "dom", "blank", "yaml"}, resp, 0.5)

	assert.Equal(t, Response{"xml": {Alias: "可扩展标记语言"}}, aligned)
	assert.Equal(t, []string{"blank", "yaml"}, missing)
	assert.Equal(t, []string{"dom"}, dropped)
}

func TestAsk_PartialAndRetry(t *testing.T) {
	calls := 0
	o := Func(func(ctx context.Context, req Request) (Response, error) {
		calls++
		if calls == 1 {
			return Response{"clean": {Alias: "清理"}}, nil
		}
		assert.Equal(t, []string{"xml"}, req.UnknownTokens)
		return Response{"xml": {Alias: "可扩展标记语言"}}, nil
	})

	resp, out := Ask(context.Background(), o, Request{FileName: "clean-xml.js", UnknownTokens: []string{"clean", "xml"}}, AskOptions{})
	assert.Len(t, resp, 1)
	assert.Equal(t, []string{"xml"}, out.Missing)
	assert.Equal(t, 1, out.Calls)

	calls = 0
	resp, out = Ask(context.Background(), o, Request{FileName: "clean-xml.js", UnknownTokens: []string{"clean", "xml"}}, AskOptions{RetryMissing: true})
	assert.Len(t, resp, 2)
	assert.Empty(t, out.Missing)
	assert.Equal(t, 2, out.Calls)
}

func TestAsk_FailureIsEmpty(t *testing.T) {
	s := NewStatic(nil)
	s.Err = errors.New("connection refused")

	resp, out := Ask(context.Background(), s, Request{UnknownTokens: []string{"xml"}}, AskOptions{})
	assert.Empty(t, resp)
	require.Error(t, out.Err)
	assert.Equal(t, nlerrors.OracleUnavailable, Classify(out.Err))
}

func TestAsk_Timeout(t *testing.T) {
	s := NewStatic(map[string]string{"xml": "可扩展标记语言"})
	s.Delay = time.Second

	start := time.Now()
	resp, out := Ask(context.Background(), s, Request{UnknownTokens: []string{"xml"}}, AskOptions{Timeout: 20 * time.Millisecond})
	assert.Empty(t, resp)
	assert.Equal(t, nlerrors.OracleTimeout, Classify(out.Err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestAsk_NothingToAsk(t *testing.T) {
	s := NewStatic(nil)
	resp, out := Ask(context.Background(), s, Request{}, AskOptions{})
	assert.Empty(t, resp)
	assert.Equal(t, 0, out.Calls)
	assert.Equal(t, 0, s.Calls())
}

func TestLimited_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	o := Func(func(ctx context.Context, req Request) (Response, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return Response{}, nil
	})

	l := NewLimited(o, 2)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Suggest(context.Background(), Request{UnknownTokens: []string{"x"}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestLimited_CancelWhileWaiting(t *testing.T) {
	block := make(chan struct{})
	o := Func(func(ctx context.Context, req Request) (Response, error) {
		<-block
		return Response{}, nil
	})
	l := NewLimited(o, 1)

	go l.Suggest(context.Background(), Request{})
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := l.Suggest(ctx, Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(block)
}

func chatReply(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestOpenAI_Suggest(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatReply(`{"xml": {"alias": "可扩展标记语言", "confidence": 0.8}}`))
	}))
	defer srv.Close()

	c, err := NewOpenAI(OpenAIOptions{BaseURL: srv.URL + "/v1", APIKey: "test-key", Model: "test-model"})
	require.NoError(t, err)

	resp, err := c.Suggest(context.Background(), Request{FileName: "clean-xml-files.js", UnknownTokens: []string{"xml"}})
	require.NoError(t, err)
	assert.Equal(t, "可扩展标记语言", resp["xml"].Alias)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[1].Content, `"unknownTokens":["xml"]`)
}

func TestOpenAI_Errors(t *testing.T) {
	status := http.StatusTooManyRequests
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
	}))
	defer srv.Close()

	c, err := NewOpenAI(OpenAIOptions{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = c.Suggest(context.Background(), Request{UnknownTokens: []string{"xml"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, nlerrors.OracleUnavailable, Classify(err))
}

func TestOpenAI_MalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatReply(`not json`))
	}))
	defer srv.Close()

	c, err := NewOpenAI(OpenAIOptions{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	_, err = c.Suggest(context.Background(), Request{UnknownTokens: []string{"xml"}})
	assert.Equal(t, nlerrors.OracleMalformed, Classify(err))
}

func TestNewOpenAI_MissingKey(t *testing.T) {
	t.Setenv("NAMELENS_TEST_NO_KEY", "")
	_, err := NewOpenAI(OpenAIOptions{APIKeyEnv: "NAMELENS_TEST_NO_KEY"})
	assert.True(t, nlerrors.HasCode(err, nlerrors.ConfigInvalid))
}
