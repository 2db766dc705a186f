package tryon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mhpenta/tryon/ratelimiter"
)

const tracerName = "github.com/mhpenta/tryon"

// Operation names used in logs, metrics and exhaustion errors.
const (
	OpModelImage     = "Model image generation"
	OpRecommendation = "Outfit recommendation"
	OpOutfitImage    = "Outfit image generation"
)

// Default model identifiers.
const (
	ModelFlashImage Model = "gemini-2.5-flash-image"
	ModelPro        Model = "gemini-2.5-pro"
	ModelFlash      Model = "gemini-2.0-flash"
)

// ModelSet holds the ordered models tried by each operation. A later model is
// only used after the previous one failed with a retryable error.
type ModelSet struct {
	ModelImage     []Model `yaml:"model_image"`
	Recommendation []Model `yaml:"recommendation"`
	OutfitImage    []Model `yaml:"outfit_image"`
}

// DefaultModels returns the model order of each operation.
func DefaultModels() ModelSet {
	return ModelSet{
		ModelImage:     []Model{ModelFlashImage},
		Recommendation: []Model{ModelPro, ModelFlash},
		OutfitImage:    []Model{ModelFlashImage, ModelFlash},
	}
}

// Observer receives retry and fallback events.
type Observer interface {
	RetryObserver
	ObserveFallback(operation string, from, to Model)
}

type nopStylistObserver struct{ nopObserver }

func (nopStylistObserver) ObserveFallback(string, Model, Model) {}

// Stylist runs the try-on operations against a ContentGenerator.
// Its configuration is fixed at construction, so it is safe for concurrent use.
type Stylist struct {
	generator ContentGenerator
	models    ModelSet
	infos     map[Model]ModelInfo

	policy   RetryPolicy
	retrier  *Retrier
	retryOpt []RetrierOption

	limiters         ratelimiter.Registry
	waitOnRateLimit  bool
	maxRateLimitWait time.Duration

	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
}

// NewStylist creates a Stylist for the generator.
//
// Example:
//
//	gen, err := gemini.NewWithAPIKey(ctx, apiKey)
//	if err != nil {
//	    return err
//	}
//	stylist := tryon.NewStylist(gen,
//	    tryon.WithLogger(slog.Default()),
//	)
func NewStylist(generator ContentGenerator, opts ...Option) *Stylist {
	s := &Stylist{
		generator: generator,
		models:    DefaultModels(),
		infos:     make(map[Model]ModelInfo),
		policy:    DefaultRetryPolicy(),
		limiters:  ratelimiter.NewRegistry(),
		logger:    slog.Default(),
		observer:  nopStylistObserver{},
		tracer:    otel.Tracer(tracerName),
	}

	// Default in-memory limiters from the provider's model info.
	for _, info := range generator.Models() {
		s.infos[info.Name] = info
		if info.RateLimits.RequestsPerMinute > 0 {
			s.limiters.Set(string(info.Name), ratelimiter.New(info.RateLimits.RequestsPerMinute, info.RateLimits.Burst))
		}
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.retrier == nil {
		retryOpts := append([]RetrierOption{
			WithRetryLogger(s.logger),
			WithRetryObserver(s.observer),
		}, s.retryOpt...)
		s.retrier = NewRetrier(s.policy, retryOpts...)
	}

	return s
}

// Models returns the configured model order.
func (s *Stylist) Models() ModelSet {
	return s.models
}

// Close releases the generator.
func (s *Stylist) Close() error {
	return s.generator.Close()
}

// GenerateModelImage turns a user photo into a full-body model image and
// returns it as a data URI.
func (s *Stylist) GenerateModelImage(ctx context.Context, photo InputImage) (string, error) {
	if err := ValidateInputImage(photo); err != nil {
		return "", err
	}

	ctx, span := s.tracer.Start(ctx, "tryon.GenerateModelImage")
	defer span.End()

	image, err := Retry(ctx, s.retrier, OpModelImage, func(ctx context.Context) (string, error) {
		return tryModels(ctx, s, OpModelImage, s.usableModels(s.models.ModelImage, OutputImage, true), func(ctx context.Context, model Model) (string, error) {
			resp, err := s.call(ctx, &Request{
				Model:  model,
				Images: []InputImage{photo},
				Prompt: modelImagePrompt,
				Output: OutputImage,
			})
			if err != nil {
				return "", err
			}
			return ExtractImage(resp)
		})
	})
	endSpan(span, err)
	return image, err
}

// GetOutfitRecommendation asks the stylist model for a new outfit based on
// the conversation so far.
func (s *Stylist) GetOutfitRecommendation(ctx context.Context, wardrobe Wardrobe, history []ChatMessage) (*OutfitRecommendation, error) {
	ctx, span := s.tracer.Start(ctx, "tryon.GetOutfitRecommendation",
		trace.WithAttributes(attribute.Int("history_length", len(history))))
	defer span.End()

	prompt := buildRecommendationPrompt(wardrobe, history)

	rec, err := Retry(ctx, s.retrier, OpRecommendation, func(ctx context.Context) (*OutfitRecommendation, error) {
		return tryModels(ctx, s, OpRecommendation, s.usableModels(s.models.Recommendation, OutputJSON, false), func(ctx context.Context, model Model) (*OutfitRecommendation, error) {
			resp, err := s.call(ctx, &Request{
				Model:             model,
				Prompt:            prompt,
				SystemInstruction: stylistInstruction,
				Output:            OutputJSON,
				Schema:            recommendationSchema,
			})
			if err != nil {
				return nil, err
			}
			return ParseRecommendation(resp.Text)
		})
	})
	endSpan(span, err)
	return rec, err
}

// GenerateOutfitImage dresses the person of the model image in the described
// outfit and returns the result as a data URI.
func (s *Stylist) GenerateOutfitImage(ctx context.Context, modelImageDataURI, outfitDescription string) (string, error) {
	if strings.TrimSpace(outfitDescription) == "" {
		return "", ErrEmptyDescription
	}
	modelImage, err := ParseDataURI(modelImageDataURI)
	if err != nil {
		return "", err
	}

	ctx, span := s.tracer.Start(ctx, "tryon.GenerateOutfitImage")
	defer span.End()

	prompt := buildOutfitImagePrompt(outfitDescription)

	image, err := Retry(ctx, s.retrier, OpOutfitImage, func(ctx context.Context) (string, error) {
		return tryModels(ctx, s, OpOutfitImage, s.usableModels(s.models.OutfitImage, OutputImage, true), func(ctx context.Context, model Model) (string, error) {
			resp, err := s.call(ctx, &Request{
				Model:  model,
				Images: []InputImage{modelImage},
				Prompt: prompt,
				Output: OutputImage,
			})
			if err != nil {
				return "", err
			}
			return ExtractImage(resp)
		})
	})
	endSpan(span, err)
	return image, err
}

// ParseRecommendation validates and decodes the model's JSON answer.
func ParseRecommendation(text string) (*OutfitRecommendation, error) {
	jsonStr := strings.TrimSpace(text)
	if !strings.HasPrefix(jsonStr, "{") || !strings.HasSuffix(jsonStr, "}") {
		return nil, ErrInvalidJSON
	}

	var rec OutfitRecommendation
	if err := json.Unmarshal([]byte(jsonStr), &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if rec.OutfitDescription == "" || rec.Reasoning == "" {
		return nil, fmt.Errorf("%w: outfitDescription and reasoning are required", ErrInvalidJSON)
	}
	return &rec, nil
}

// usableModels drops the models the generator describes as unable to produce
// kind or to read images. Models it does not describe are kept.
func (s *Stylist) usableModels(models []Model, kind OutputKind, imageInput bool) []Model {
	usable := make([]Model, 0, len(models))
	for _, model := range models {
		info, ok := s.infos[model]
		if ok && (!info.Supports(kind) || (imageInput && !info.Capabilities.SupportsImageInput)) {
			s.logger.Debug("skipping model without required capability",
				"model", string(model),
				"output", kind.String(),
			)
			continue
		}
		usable = append(usable, model)
	}
	return usable
}

// tryModels calls each model in order, moving on only after a retryable
// failure. The last model's error is returned as is.
func tryModels[T any](ctx context.Context, s *Stylist, operation string, models []Model, call func(ctx context.Context, model Model) (T, error)) (T, error) {
	var zero T
	if len(models) == 0 {
		return zero, fmt.Errorf("%s: %w", operation, ErrNoModels)
	}

	var lastErr error
	for i, model := range models {
		result, err := call(ctx, model)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) || i == len(models)-1 {
			break
		}

		next := models[i+1]
		s.logger.Warn("model unavailable, falling back",
			"operation", operation,
			"model", string(model),
			"fallback_model", string(next),
			"error", err.Error(),
		)
		s.observer.ObserveFallback(operation, model, next)
	}
	return zero, lastErr
}

// call paces and sends a single request.
func (s *Stylist) call(ctx context.Context, req *Request) (*Response, error) {
	if err := s.checkRateLimit(ctx, req.Model); err != nil {
		s.logger.Warn("rate limit hit",
			"model", string(req.Model),
			"error", err.Error(),
		)
		return nil, err
	}

	start := time.Now()
	s.logger.Debug("starting model call",
		"model", string(req.Model),
		"output", req.Output.String(),
		"prompt_length", len(req.Prompt),
		"image_count", len(req.Images),
	)

	resp, err := s.generator.GenerateContent(ctx, req)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("model call failed",
			"model", string(req.Model),
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		return nil, err
	}

	logAttrs := []any{
		"model", string(req.Model),
		"duration_ms", duration.Milliseconds(),
		"candidates", len(resp.Candidates),
	}
	if resp.UsageMetadata != nil {
		logAttrs = append(logAttrs,
			"prompt_tokens", resp.UsageMetadata.PromptTokens,
			"response_tokens", resp.UsageMetadata.CandidatesTokens,
			"total_tokens", resp.UsageMetadata.TotalTokens,
		)
	}
	s.logger.Info("model call completed", logAttrs...)

	return resp, nil
}

// checkRateLimit applies the model's client-side limiter, waiting when
// configured to and otherwise failing fast with a *RateLimitError.
func (s *Stylist) checkRateLimit(ctx context.Context, model Model) error {
	limiter, ok := s.limiters.Get(string(model))
	if !ok {
		return nil
	}

	if s.waitOnRateLimit {
		err := limiter.Wait(ctx, s.maxRateLimitWait)
		if errors.Is(err, ratelimiter.ErrWaitTooLong) {
			return &RateLimitError{
				RetryAfter: limiter.TimeUntilAvailable(),
				Model:      string(model),
			}
		}
		return err
	}

	if !limiter.TryAcquire() {
		return &RateLimitError{
			RetryAfter: limiter.TimeUntilAvailable(),
			Model:      string(model),
		}
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
