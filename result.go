package tryon

// FinishReasonStop is the finish reason of a normally completed candidate.
const FinishReasonStop = "STOP"

// GeneratedImage is an inline image returned by the model.
type GeneratedImage struct {
	// Data contains the raw image bytes
	Data []byte

	// MIMEType of the image
	MIMEType string
}

// Part is one segment of a candidate's content: text, an inline image, or both.
type Part struct {
	Text  string
	Image *GeneratedImage
}

// Candidate is one output proposed by the model.
type Candidate struct {
	// FinishReason is empty when the provider did not report one.
	FinishReason string
	Parts        []Part
}

// Response is the provider-neutral view of a model reply.
type Response struct {
	// BlockReason is set when the prompt was refused by content policy.
	BlockReason        string
	BlockReasonMessage string

	Candidates []Candidate

	// Text is the concatenated text of the first candidate.
	Text string

	// UsageMetadata contains token/billing information
	UsageMetadata *UsageMetadata
}

// UsageMetadata contains usage information for billing and monitoring.
type UsageMetadata struct {
	PromptTokens     int
	CandidatesTokens int
	TotalTokens      int
}

// OutfitRecommendation is the stylist's structured answer.
type OutfitRecommendation struct {
	OutfitDescription string `json:"outfitDescription"`
	Reasoning         string `json:"reasoning"`
}
