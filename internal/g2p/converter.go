package g2p

import "context"

// Converter turns orthographic text into a raw phoneme sequence.
// Output is ARPAbet or IPA depending on the backend; callers normalize
// before comparison either way.
type Converter interface {
	Convert(ctx context.Context, text string) ([]string, error)
}
