package tryon

// ModelCapabilities describes which outputs a model can produce.
type ModelCapabilities struct {
	SupportsImageOutput bool
	SupportsJSONOutput  bool
	SupportsImageInput  bool
}

// RateLimits defines client-side pacing for a model.
type RateLimits struct {
	RequestsPerMinute int
	Burst             int // 0 means RequestsPerMinute
}

// ModelInfo contains metadata for a model.
type ModelInfo struct {
	Name         Model
	Description  string
	Capabilities ModelCapabilities
	RateLimits   RateLimits
}

// Supports reports whether the model can produce the given output.
func (m ModelInfo) Supports(kind OutputKind) bool {
	switch kind {
	case OutputImage:
		return m.Capabilities.SupportsImageOutput
	case OutputJSON:
		return m.Capabilities.SupportsJSONOutput
	default:
		return false
	}
}
