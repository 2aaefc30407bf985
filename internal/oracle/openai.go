package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	nlerrors "namelens/internal/errors"
)

// OpenAIOptions configures the OpenAI-compatible oracle.
type OpenAIOptions struct {
	BaseURL   string
	Model     string
	APIKeyEnv string
	// APIKey overrides APIKeyEnv; intended for tests.
	APIKey         string
	TargetLanguage string
	Temperature    float32
}

func (o *OpenAIOptions) defaults() {
	if o.BaseURL == "" {
		o.BaseURL = "https://api.openai.com/v1"
	}
	if o.Model == "" {
		o.Model = openai.GPT4oMini
	}
	if o.APIKeyEnv == "" {
		o.APIKeyEnv = "OPENAI_API_KEY"
	}
	if o.TargetLanguage == "" {
		o.TargetLanguage = "Simplified Chinese"
	}
}

// OpenAI asks a chat completion endpoint for a JSON token map.
type OpenAI struct {
	client *openai.Client
	opts   OpenAIOptions
}

// NewOpenAI builds the client. A missing API key is a configuration error.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	opts.defaults()
	key := opts.APIKey
	if key == "" {
		key = os.Getenv(opts.APIKeyEnv)
	}
	if key == "" {
		return nil, nlerrors.Newf(nlerrors.ConfigInvalid, "oracle: missing api key (set %s)", opts.APIKeyEnv)
	}

	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &OpenAI{client: openai.NewClientWithConfig(cfg), opts: opts}, nil
}

const systemPrompt = `You translate fragments of file and folder names written by programmers.
Translate each token into %s as a short noun or verb suitable for a file-tree label.
Reply with one JSON object only. Keys are the tokens exactly as given; values are
{"alias": "<translation>", "confidence": <0..1>}. Omit tokens you cannot translate.`

func (c *OpenAI) Suggest(ctx context.Context, req Request) (Response, error) {
	user, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.opts.Model,
		Temperature: c.opts.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, c.opts.TargetLanguage)},
			{Role: openai.ChatMessageRoleUser, Content: string(user)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, c.wrap(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return nil, nlerrors.New(nlerrors.OracleMalformed, "oracle reply has no choices", ErrResponseInvalid)
	}
	return ParseResponse(resp.Choices[0].Message.Content)
}

func (c *OpenAI) wrap(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return nlerrors.New(nlerrors.OracleTimeout, "oracle call timed out", err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return nlerrors.New(nlerrors.OracleUnavailable, "oracle rate limited", fmt.Errorf("%w: %v", ErrRateLimited, err))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return nlerrors.New(nlerrors.OracleUnavailable, "oracle rate limited", fmt.Errorf("%w: %v", ErrRateLimited, err))
	}
	return nlerrors.New(nlerrors.OracleUnavailable, "oracle call failed", err)
}
