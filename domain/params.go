package domain

// GenerationParams are the sampling settings sent with every round.
type GenerationParams struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
}

// ParamsFor returns the fixed parameters for bucket. Every bucket produced
// by EstimateSize has an entry; unknown buckets fall back to SizeShort.
func ParamsFor(bucket SizeBucket) GenerationParams {
	switch bucket {
	case SizeLong:
		return GenerationParams{MaxTokens: 900, Temperature: 0.7, TopP: 0.95}
	case SizeMedium:
		return GenerationParams{MaxTokens: 300, Temperature: 0.5, TopP: 0.9}
	default:
		return GenerationParams{MaxTokens: 100, Temperature: 0.3, TopP: 0.8}
	}
}
