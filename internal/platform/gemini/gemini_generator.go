package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/mydudu/screening-api/internal/config"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/generation"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models used by the generator.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator implements generation.ArticleGenerator on the Gemini API.
type Generator struct {
	logger       *slog.Logger
	config       config.LLMConfig
	models       contentGenerator
	systemPrompt string
	limiter      *rate.Limiter
	inFlight     *semaphore.Weighted

	mu  sync.Mutex
	rng *rand.Rand

	// after is time.After; replaced in tests to skip backoff delays.
	after func(time.Duration) <-chan time.Time
}

var _ generation.ArticleGenerator = (*Generator)(nil)

// NewGenerator creates a Gemini-backed article generator.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(logger, cfg, client.Models)
}

func newGenerator(logger *slog.Logger, cfg config.LLMConfig, models contentGenerator) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	prompt, err := loadSystemPrompt(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	if cfg.MaxRetries < 0 {
		logger.Warn("invalid max retries value, using default", "max_retries", 3)
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelaySeconds < 1 {
		cfg.RetryDelaySeconds = 2
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	concurrent := cfg.MaxConcurrent
	if concurrent <= 0 {
		concurrent = 1
	}

	return &Generator{
		logger:       logger.With(slog.String("component", "gemini_generator")),
		config:       cfg,
		models:       models,
		systemPrompt: prompt,
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		inFlight:     semaphore.NewWeighted(int64(concurrent)),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		after:        time.After,
	}, nil
}

// GenerateArticle implements generation.ArticleGenerator.
func (g *Generator) GenerateArticle(
	ctx context.Context,
	req generation.ArticleRequest,
) (*domain.EducationArticle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", generation.ErrGenerationFailed, err)
	}

	reply, err := g.callWithRetry(ctx, string(payload))
	if err != nil {
		return nil, err
	}

	article, err := domain.NewEducationArticle(
		req.SessionID,
		req.Topic,
		strings.TrimSpace(reply.Title),
		strings.TrimSpace(reply.Description),
		strings.TrimSpace(reply.Link),
		strings.TrimSpace(reply.Image),
		g.config.ModelName,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}

	g.logger.InfoContext(ctx, "education article generated",
		"session_id", req.SessionID.String(),
		"topic", req.Topic,
		"article_id", article.ID.String())
	return article, nil
}

func (g *Generator) requestConfig() *genai.GenerateContentConfig {
	temperature := g.config.Temperature
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: g.systemPrompt}}},
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(),
	}
}

// callWithRetry calls the API up to MaxRetries+1 times, backing off
// exponentially with jitter between transient failures. Safety blocks and
// malformed replies are returned immediately.
func (g *Generator) callWithRetry(ctx context.Context, prompt string) (*articleSchema, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	maxRetries := g.config.MaxRetries
	for attempt := 0; ; attempt++ {
		reply, err := g.call(ctx, prompt, attempt+1)
		if err == nil {
			return reply, nil
		}

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			g.logger.WarnContext(ctx, "permanent error occurred, not retrying", "error", err)
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
		if attempt >= maxRetries {
			g.logger.WarnContext(ctx, "maximum retry attempts reached", "max_retries", maxRetries)
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, maxRetries, err)
		}

		delay := g.backoff(attempt)
		g.logger.InfoContext(ctx, "retrying after delay",
			"attempt", attempt+1,
			"delay_seconds", delay.Seconds())

		select {
		case <-g.after(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// backoff returns baseDelay * 2^attempt * [0.5, 1.0).
func (g *Generator) backoff(attempt int) time.Duration {
	g.mu.Lock()
	jitter := 0.5 + g.rng.Float64()*0.5
	g.mu.Unlock()
	seconds := float64(g.config.RetryDelaySeconds) * math.Pow(2, float64(attempt)) * jitter
	return time.Duration(seconds * float64(time.Second))
}

func (g *Generator) call(ctx context.Context, prompt string, attempt int) (*articleSchema, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", generation.ErrTransientFailure, err)
	}
	if err := g.inFlight.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	defer g.inFlight.Release(1)

	g.logger.DebugContext(ctx, "making Gemini API call",
		"attempt", attempt,
		"model", g.config.ModelName)

	resp, err := g.models.GenerateContent(ctx, g.config.ModelName, genai.Text(prompt), g.requestConfig())
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini API call error", "error", err, "attempt", attempt)
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	g.logUsage(ctx, resp)
	return parseResponse(resp)
}

func (g *Generator) logUsage(ctx context.Context, resp *genai.GenerateContentResponse) {
	if resp == nil || resp.UsageMetadata == nil {
		return
	}
	u := resp.UsageMetadata
	g.logger.InfoContext(ctx, "gemini token usage",
		"operation", "generate_article",
		"prompt_tokens", u.PromptTokenCount,
		"completion_tokens", u.CandidatesTokenCount,
		"total_tokens", u.TotalTokenCount)
}

func parseResponse(resp *genai.GenerateContentResponse) (*articleSchema, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, candidate.FinishReason)
	}
	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}

	var reply articleSchema
	if err := json.Unmarshal([]byte(text.String()), &reply); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	if reply.Title == "" || reply.Link == "" {
		return nil, fmt.Errorf("%w: title and link are required", generation.ErrInvalidResponse)
	}
	return &reply, nil
}
