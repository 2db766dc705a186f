package gemini

import "github.com/mhpenta/tryon"

// FlashImageInfo is the model info for Gemini 2.5 Flash Image, the image
// editing model used for model photos and outfit composition.
var FlashImageInfo = tryon.ModelInfo{
	Name:        tryon.ModelFlashImage,
	Description: "Gemini 2.5 Flash Image",
	Capabilities: tryon.ModelCapabilities{
		SupportsImageOutput: true,
		SupportsImageInput:  true,
	},
	RateLimits: tryon.RateLimits{
		RequestsPerMinute: 500, // ~500 RPM for Tier 1
	},
}

// ProInfo is the model info for Gemini 2.5 Pro, the primary stylist model.
var ProInfo = tryon.ModelInfo{
	Name:        tryon.ModelPro,
	Description: "Gemini 2.5 Pro",
	Capabilities: tryon.ModelCapabilities{
		SupportsJSONOutput: true,
		SupportsImageInput: true,
	},
	RateLimits: tryon.RateLimits{
		RequestsPerMinute: 150,
	},
}

// FlashInfo is the model info for Gemini 2.0 Flash, the fallback for both
// recommendations and outfit composition.
var FlashInfo = tryon.ModelInfo{
	Name:        tryon.ModelFlash,
	Description: "Gemini 2.0 Flash",
	Capabilities: tryon.ModelCapabilities{
		SupportsImageOutput: true,
		SupportsJSONOutput:  true,
		SupportsImageInput:  true,
	},
	RateLimits: tryon.RateLimits{
		RequestsPerMinute: 2000,
	},
}
