package domain

import "strings"

// SizeBucket selects the generation parameters for a message.
type SizeBucket string

const (
	SizeShort  SizeBucket = "short"
	SizeMedium SizeBucket = "medium"
	SizeLong   SizeBucket = "long"
)

// EstimateSize buckets text by its whitespace-separated word count.
func EstimateSize(text string) SizeBucket {
	n := len(strings.Fields(text))
	switch {
	case n > 12:
		return SizeLong
	case n > 3:
		return SizeMedium
	default:
		return SizeShort
	}
}
