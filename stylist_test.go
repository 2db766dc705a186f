package tryon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhpenta/tryon/ratelimiter"
)

var testPhoto = InputImage{Data: []byte("photo"), MIMEType: "image/jpeg"}

func newTestStylist(gen *MockGenerator, opts ...Option) (*Stylist, *countingObserver, *recordingSleep) {
	obs := &countingObserver{}
	sleep := &recordingSleep{}
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithObserver(obs),
		WithRetryOptions(WithSleep(sleep.sleep)),
	}, opts...)
	return NewStylist(gen, opts...), obs, sleep
}

func requestModels(reqs []*Request) []Model {
	models := make([]Model, len(reqs))
	for i, r := range reqs {
		models[i] = r.Model
	}
	return models
}

func TestGenerateModelImage(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{{Resp: imageResponse("image/png", []byte("model"))}}}
	s, _, _ := newTestStylist(gen)

	got, err := s.GenerateModelImage(context.Background(), testPhoto)
	require.NoError(t, err)
	assert.Equal(t, EncodeDataURI("image/png", []byte("model")), got)

	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, ModelFlashImage, reqs[0].Model)
	assert.Equal(t, OutputImage, reqs[0].Output)
	assert.Equal(t, []InputImage{testPhoto}, reqs[0].Images)
	assert.Contains(t, reqs[0].Prompt, "full-body fashion model")
}

func TestGenerateModelImage_InvalidPhoto(t *testing.T) {
	gen := &MockGenerator{}
	s, _, _ := newTestStylist(gen)

	_, err := s.GenerateModelImage(context.Background(), InputImage{})
	assert.ErrorIs(t, err, ErrEmptyImageData)
	assert.Zero(t, gen.Calls())
}

func TestGenerateModelImage_RetriesTransientFailures(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{
		{Err: unavailableErr()},
		{Err: unavailableErr()},
		{Resp: imageResponse("image/png", []byte("model"))},
	}}
	s, obs, sleep := newTestStylist(gen)

	_, err := s.GenerateModelImage(context.Background(), testPhoto)
	require.NoError(t, err)
	assert.Equal(t, 3, gen.Calls())
	assert.Len(t, sleep.Delays(), 2)
	assert.Equal(t, 3, obs.attempts)
	assert.Zero(t, obs.fallbacks)
}

func TestGenerateModelImage_BlockedIsTerminal(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{{Resp: &Response{BlockReason: "SAFETY", BlockReasonMessage: "X"}}}}
	s, _, _ := newTestStylist(gen)

	_, err := s.GenerateModelImage(context.Background(), testPhoto)
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, 1, gen.Calls())
}

func TestGetOutfitRecommendation(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{{Resp: textResponse(`{"outfitDescription":"a","reasoning":"b"}`)}}}
	s, _, _ := newTestStylist(gen)

	history := []ChatMessage{{Role: RoleUser, Content: "Something for the office"}}
	rec, err := s.GetOutfitRecommendation(context.Background(), DefaultWardrobe(), history)
	require.NoError(t, err)
	assert.Equal(t, &OutfitRecommendation{OutfitDescription: "a", Reasoning: "b"}, rec)

	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, ModelPro, reqs[0].Model)
	assert.Equal(t, OutputJSON, reqs[0].Output)
	assert.Same(t, recommendationSchema, reqs[0].Schema)
	assert.Contains(t, reqs[0].SystemInstruction, "What2Wear")
	assert.Contains(t, reqs[0].Prompt, "User: Something for the office")
	assert.Contains(t, reqs[0].Prompt, "Classic blue jeans")
	assert.Empty(t, reqs[0].Images)
}

func TestGetOutfitRecommendation_InvalidJSONDoesNotFallBack(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{
		{Resp: textResponse("not-json")},
		{Resp: textResponse(`{"outfitDescription":"a","reasoning":"b"}`)},
	}}
	s, obs, _ := newTestStylist(gen)

	_, err := s.GetOutfitRecommendation(context.Background(), nil, []ChatMessage{{Role: RoleUser, Content: "hi"}})
	assert.Same(t, ErrInvalidJSON, err)
	assert.Equal(t, 1, gen.Calls())
	assert.Zero(t, obs.fallbacks)
}

func TestGetOutfitRecommendation_FallsBackOnRetryableError(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{
		{Err: unavailableErr()},
		{Resp: textResponse(`{"outfitDescription":"a","reasoning":"b"}`)},
	}}
	s, obs, sleep := newTestStylist(gen)

	rec, err := s.GetOutfitRecommendation(context.Background(), nil, []ChatMessage{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "a", rec.OutfitDescription)
	assert.Equal(t, []Model{ModelPro, ModelFlash}, requestModels(gen.Requests()))
	assert.Equal(t, 1, obs.fallbacks)
	assert.Empty(t, sleep.Delays())
}

func TestGetOutfitRecommendation_ExhaustsAcrossModels(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{{Err: unavailableErr()}}}
	s, obs, sleep := newTestStylist(gen)

	_, err := s.GetOutfitRecommendation(context.Background(), nil, []ChatMessage{{Role: RoleUser, Content: "hi"}})
	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, OpRecommendation, exhausted.Operation)
	assert.Equal(t, 10, gen.Calls())
	assert.Len(t, sleep.Delays(), 4)
	assert.Equal(t, 5, obs.fallbacks)
	assert.Equal(t, 1, obs.exhausted)
}

func TestGetOutfitRecommendation_EmptyHistory(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{
		{Resp: textResponse(`{"outfitDescription":"a","reasoning":"b"}`)},
	}}
	s, _, _ := newTestStylist(gen)

	rec, err := s.GetOutfitRecommendation(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", rec.OutfitDescription)
	require.Equal(t, 1, gen.Calls())
	assert.Contains(t, gen.Requests()[0].Prompt, "This is the conversation history:\n\n\n")
}

func TestGetOutfitRecommendation_OverloadedServerErrorFallsBack(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{
		{Err: &APIError{Code: 500, Status: "INTERNAL", Message: "The model is overloaded. Please try again later."}},
		{Resp: textResponse(`{"outfitDescription":"a","reasoning":"b"}`)},
	}}
	s, obs, _ := newTestStylist(gen)

	rec, err := s.GetOutfitRecommendation(context.Background(), nil, []ChatMessage{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "a", rec.OutfitDescription)
	assert.Equal(t, []Model{ModelPro, ModelFlash}, requestModels(gen.Requests()))
	assert.Equal(t, 1, obs.fallbacks)
}

func TestParseRecommendation(t *testing.T) {
	rec, err := ParseRecommendation("  {\"outfitDescription\":\"a\",\"reasoning\":\"b\"}\n")
	require.NoError(t, err)
	assert.Equal(t, "b", rec.Reasoning)

	for _, bad := range []string{
		"",
		"not-json",
		"```json\n{}\n```",
		"{not json}",
		`{"outfitDescription":"a"}`,
		`{"reasoning":"b"}`,
	} {
		_, err := ParseRecommendation(bad)
		assert.ErrorIs(t, err, ErrInvalidJSON, "input %q", bad)
	}
}

func TestGenerateOutfitImage(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{{Resp: imageResponse("image/png", []byte("dressed"))}}}
	s, _, _ := newTestStylist(gen)

	modelImage := EncodeDataURI("image/png", []byte("model"))
	got, err := s.GenerateOutfitImage(context.Background(), modelImage, "indigo skinny jeans and a white tee")
	require.NoError(t, err)
	assert.Equal(t, EncodeDataURI("image/png", []byte("dressed")), got)

	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, ModelFlashImage, reqs[0].Model)
	require.Len(t, reqs[0].Images, 1)
	assert.Equal(t, []byte("model"), reqs[0].Images[0].Data)
	assert.Equal(t, "image/png", reqs[0].Images[0].MIMEType)
	assert.Contains(t, reqs[0].Prompt, "indigo skinny jeans and a white tee")
}

func TestGenerateOutfitImage_Validation(t *testing.T) {
	gen := &MockGenerator{}
	s, _, _ := newTestStylist(gen)

	_, err := s.GenerateOutfitImage(context.Background(), EncodeDataURI("image/png", []byte("m")), "   ")
	assert.ErrorIs(t, err, ErrEmptyDescription)

	_, err = s.GenerateOutfitImage(context.Background(), "not a data uri", "jeans")
	assert.ErrorIs(t, err, ErrInvalidDataURI)

	assert.Zero(t, gen.Calls())
}

func TestGenerateOutfitImage_NoImageOnPrimaryIsTerminal(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{{Resp: textResponse("I can only describe it.")}}}
	s, obs, _ := newTestStylist(gen)

	_, err := s.GenerateOutfitImage(context.Background(), EncodeDataURI("image/png", []byte("m")), "jeans")
	var noImage *NoImageError
	require.ErrorAs(t, err, &noImage)
	assert.Equal(t, 1, gen.Calls())
	assert.Zero(t, obs.fallbacks)
}

func TestGenerateOutfitImage_FallbackModel(t *testing.T) {
	gen := &MockGenerator{GenerateFunc: func(ctx context.Context, req *Request) (*Response, error) {
		if req.Model == ModelFlashImage {
			return nil, errors.New("429 Too Many Requests")
		}
		return imageResponse("image/png", []byte("fallback")), nil
	}}
	s, _, _ := newTestStylist(gen)

	got, err := s.GenerateOutfitImage(context.Background(), EncodeDataURI("image/png", []byte("m")), "jeans")
	require.NoError(t, err)
	assert.Equal(t, EncodeDataURI("image/png", []byte("fallback")), got)
	assert.Equal(t, []Model{ModelFlashImage, ModelFlash}, requestModels(gen.Requests()))
}

func TestStylist_WithModels(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{{Resp: textResponse(`{"outfitDescription":"a","reasoning":"b"}`)}}}
	s, _, _ := newTestStylist(gen, WithModels(ModelSet{Recommendation: []Model{"custom-model"}}))

	_, err := s.GetOutfitRecommendation(context.Background(), nil, []ChatMessage{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, []Model{"custom-model"}, requestModels(gen.Requests()))
	assert.Equal(t, DefaultModels().ModelImage, s.Models().ModelImage)
}

func TestStylist_ClientRateLimitFallsBack(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{{Resp: textResponse(`{"outfitDescription":"a","reasoning":"b"}`)}}}
	s, obs, _ := newTestStylist(gen, WithRateLimiter(ModelPro, ratelimiter.New(1, 1)))
	history := []ChatMessage{{Role: RoleUser, Content: "hi"}}

	_, err := s.GetOutfitRecommendation(context.Background(), nil, history)
	require.NoError(t, err)
	_, err = s.GetOutfitRecommendation(context.Background(), nil, history)
	require.NoError(t, err)

	assert.Equal(t, []Model{ModelPro, ModelFlash}, requestModels(gen.Requests()))
	assert.Equal(t, 1, obs.fallbacks)
}

func TestStylist_DefaultLimitersFromModelInfo(t *testing.T) {
	gen := &MockGenerator{
		Replies: []MockReply{{Resp: imageResponse("image/png", []byte("x"))}},
		ModelsFunc: func() []ModelInfo {
			return []ModelInfo{{
				Name:         ModelFlashImage,
				Capabilities: ModelCapabilities{SupportsImageOutput: true, SupportsImageInput: true},
				RateLimits:   RateLimits{RequestsPerMinute: 1},
			}}
		},
	}
	s, _, _ := newTestStylist(gen, WithRetryPolicy(RetryPolicy{MaxAttempts: 1}))

	_, err := s.GenerateModelImage(context.Background(), testPhoto)
	require.NoError(t, err)

	_, err = s.GenerateModelImage(context.Background(), testPhoto)
	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.True(t, IsRateLimitError(err))
	assert.Equal(t, 1, gen.Calls())
}

func TestStylist_SkipsModelsWithoutCapability(t *testing.T) {
	gen := &MockGenerator{
		Replies: []MockReply{{Resp: imageResponse("image/png", []byte("x"))}},
		ModelsFunc: func() []ModelInfo {
			return []ModelInfo{
				{Name: ModelPro, Capabilities: ModelCapabilities{SupportsJSONOutput: true, SupportsImageInput: true}},
				{Name: "text-only", Capabilities: ModelCapabilities{SupportsImageOutput: true}},
				{Name: ModelFlashImage, Capabilities: ModelCapabilities{SupportsImageOutput: true, SupportsImageInput: true}},
			}
		},
	}
	s, obs, _ := newTestStylist(gen, WithModels(ModelSet{
		ModelImage:     []Model{ModelPro, "text-only", ModelFlashImage},
		Recommendation: []Model{ModelPro},
		OutfitImage:    []Model{ModelFlashImage},
	}))

	_, err := s.GenerateModelImage(context.Background(), testPhoto)
	require.NoError(t, err)
	assert.Equal(t, []Model{ModelFlashImage}, requestModels(gen.Requests()))
	assert.Zero(t, obs.fallbacks)
}

func TestStylist_UndescribedModelsAreTried(t *testing.T) {
	gen := &MockGenerator{Replies: []MockReply{{Resp: imageResponse("image/png", []byte("x"))}}}
	s, _, _ := newTestStylist(gen, WithModels(ModelSet{
		ModelImage:     []Model{"custom-image-model"},
		Recommendation: []Model{ModelPro},
		OutfitImage:    []Model{ModelFlashImage},
	}))

	_, err := s.GenerateModelImage(context.Background(), testPhoto)
	require.NoError(t, err)
	assert.Equal(t, []Model{"custom-image-model"}, requestModels(gen.Requests()))
}

func TestStylist_NoCapableModels(t *testing.T) {
	gen := &MockGenerator{ModelsFunc: func() []ModelInfo {
		return []ModelInfo{{Name: ModelPro, Capabilities: ModelCapabilities{SupportsJSONOutput: true}}}
	}}
	s, _, _ := newTestStylist(gen, WithModels(ModelSet{
		ModelImage:     []Model{ModelPro},
		Recommendation: []Model{ModelPro},
		OutfitImage:    []Model{ModelPro},
	}))

	_, err := s.GenerateModelImage(context.Background(), testPhoto)
	assert.ErrorIs(t, err, ErrNoModels)
	assert.Zero(t, gen.Calls())
}

func TestStylist_NoModels(t *testing.T) {
	gen := &MockGenerator{}
	s := NewStylist(gen, WithRetrier(NewRetrier(RetryPolicy{MaxAttempts: 1})))
	s.models.ModelImage = nil

	_, err := s.GenerateModelImage(context.Background(), testPhoto)
	assert.ErrorIs(t, err, ErrNoModels)
}

func TestStylist_Close(t *testing.T) {
	closed := false
	gen := &MockGenerator{CloseFunc: func() error { closed = true; return nil }}
	s, _, _ := newTestStylist(gen)

	require.NoError(t, s.Close())
	assert.True(t, closed)
}
