package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/jsonguard/internal/utils"
	"github.com/leofalp/jsonguard/providers/completion"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	defaultModel            = "gpt-4o-mini"
	defaultSchemaName       = "response"
	chatCompletionsEndpoint = "/chat/completions"
)

// Provider implements completion.Provider for the OpenAI API.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ completion.Provider = (*Provider)(nil)

// New creates a provider configured from OPENAI_API_KEY and
// OPENAI_API_BASE_URL. A missing key is only reported when Complete is
// called.
func New() *Provider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: baseURL,
		model:   defaultModel,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider
func (p *Provider) WithAPIKey(apiKey string) *Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API. A trailing slash is ignored.
func (p *Provider) WithBaseURL(baseURL string) *Provider {
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

// WithModel sets the model identifier sent with every request.
func (p *Provider) WithModel(model string) *Provider {
	p.model = model
	return p
}

// WithHTTPClient sets a custom HTTP client
func (p *Provider) WithHTTPClient(httpClient *http.Client) *Provider {
	p.client = httpClient
	return p
}

// Complete sends request as a single user message and returns the content of
// the first choice.
func (p *Provider) Complete(ctx context.Context, request completion.Request) (string, error) {
	if p.apiKey == "" {
		return "", &completion.ProviderError{Kind: completion.KindAuth, Err: errors.New("API key is not set")}
	}

	_, resp, err := utils.DoPostSync[chatCompletionResponse](ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, p.buildRequest(request))
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &completion.ProviderError{Kind: completion.KindBadResponse, Err: errors.New("no choices in response")}
	}

	message := resp.Choices[0].Message
	if message.Content == "" && message.Refusal != "" {
		return "", &completion.ProviderError{
			Kind: completion.KindBadResponse,
			Err:  fmt.Errorf("model refused: %s", utils.TruncateString(message.Refusal, utils.DefaultMaxStringLength)),
		}
	}

	return message.Content, nil
}

func (p *Provider) buildRequest(request completion.Request) chatCompletionRequest {
	temperature := request.Temperature
	req := chatCompletionRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: request.Prompt}},
		Temperature: &temperature,
	}

	if request.MaxTokens > 0 {
		maxTokens := request.MaxTokens
		req.MaxTokens = &maxTokens
	}

	if format := request.ResponseFormat; format != nil {
		req.ResponseFormat = &chatResponseFormat{Type: string(format.Type)}
		if format.Type == completion.ResponseFormatJSONSchema && format.Schema != nil {
			name := format.Name
			if name == "" {
				name = defaultSchemaName
			}
			req.ResponseFormat.JSONSchema = &chatJSONSchemaFormat{
				Name:   name,
				Schema: format.Schema,
				Strict: format.Strict,
			}
		}
	}

	return req
}

// classifyError maps a DoPostSync failure to a ProviderError.
func classifyError(err error) *completion.ProviderError {
	var statusErr *utils.HTTPStatusError
	if errors.As(err, &statusErr) {
		return &completion.ProviderError{
			Kind:       completion.KindForStatus(statusErr.StatusCode),
			StatusCode: statusErr.StatusCode,
			Err:        err,
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &completion.ProviderError{Kind: completion.KindBadResponse, Err: err}
	}

	return completion.Classify(err)
}
