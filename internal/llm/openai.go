// Package llm provides the remote classification and generation backends:
// an OpenAI-compatible chat completions client (Groq by default) and a gRPC
// classifier client. Every call is guarded by a circuit breaker.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/ashureev/honeypot/internal/agent"
	"github.com/ashureev/honeypot/internal/detection"
)

// Defaults for the OpenAI-compatible backend.
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-70b-versatile"
	DefaultTimeout = 20 * time.Second

	classifierMaxTokens = 200
	generatorMaxTokens  = 120
	generatorTemp       = 0.7
)

var errEmptyChoices = errors.New("llm returned empty choices")

// Config holds the chat completions client configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	Breaker    BreakerConfig
}

// ChatClient sends chat completions to an OpenAI-compatible endpoint.
type ChatClient struct {
	client  openaigo.Client
	model   string
	timeout time.Duration
	breaker *Breaker
	logger  *slog.Logger
}

// NewChatClient creates a client. The API key is required.
func NewChatClient(cfg Config, logger *slog.Logger) (*ChatClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm api key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Breaker == (BreakerConfig{}) {
		cfg.Breaker = DefaultBreakerConfig()
	}

	client := openaigo.NewClient(
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"),
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(cfg.HTTPClient),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(cfg.Timeout),
	)

	return &ChatClient{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		breaker: NewBreaker("llm-chat", cfg.Breaker, logger),
		logger:  logger,
	}, nil
}

// Model returns the configured model name.
func (c *ChatClient) Model() string {
	return c.model
}

func (c *ChatClient) complete(ctx context.Context, params openaigo.ChatCompletionNewParams) (string, error) {
	params.Model = openaigo.ChatModel(c.model)
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		if resp == nil || len(resp.Choices) == 0 {
			return nil, errEmptyChoices
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.(string)), nil
}

const classifierSystemPrompt = "You are a strict scam detection classifier. " +
	"Return JSON only with keys: scam (boolean), confidence (0-100), " +
	"scam_type (bank_fraud|upi_scam|phishing|fake_offer|impersonation|other|unknown), " +
	"signals (array of short strings)."

// Classifier implements detection.Classifier on top of a ChatClient.
type Classifier struct {
	chat *ChatClient
}

// NewClassifier wraps chat as a scam classifier.
func NewClassifier(chat *ChatClient) *Classifier {
	return &Classifier{chat: chat}
}

// Classify asks the model for a JSON verdict on text.
func (c *Classifier) Classify(ctx context.Context, text string) (*detection.Classification, error) {
	content, err := c.chat.complete(ctx, openaigo.ChatCompletionNewParams{
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(classifierSystemPrompt),
			openaigo.UserMessage("Classify this message: " + text),
		},
		Temperature: openaigo.Float(0),
		MaxTokens:   openaigo.Int(classifierMaxTokens),
	})
	if err != nil {
		return nil, err
	}
	return parseClassification(content)
}

// Generator implements agent.Generator on top of a ChatClient.
type Generator struct {
	chat *ChatClient
}

// NewGenerator wraps chat as a reply generator.
func NewGenerator(chat *ChatClient) *Generator {
	return &Generator{chat: chat}
}

// Generate produces the next honeypot reply.
func (g *Generator) Generate(ctx context.Context, system string, prior []agent.Turn, latest string) (string, error) {
	messages := make([]openaigo.ChatCompletionMessageParamUnion, 0, len(prior)+2)
	messages = append(messages, openaigo.SystemMessage(system))
	for _, turn := range prior {
		if turn.Role == agent.RoleUser {
			messages = append(messages, openaigo.UserMessage(turn.Content))
		} else {
			messages = append(messages, openaigo.AssistantMessage(turn.Content))
		}
	}
	messages = append(messages, openaigo.UserMessage(latest))

	return g.chat.complete(ctx, openaigo.ChatCompletionNewParams{
		Messages:    messages,
		Temperature: openaigo.Float(generatorTemp),
		MaxTokens:   openaigo.Int(generatorMaxTokens),
	})
}

var (
	_ detection.Classifier = (*Classifier)(nil)
	_ agent.Generator      = (*Generator)(nil)
)
