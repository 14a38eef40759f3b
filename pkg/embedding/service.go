package embedding

import "context"

// Service produces vector embeddings for text. Implementations must be
// safe for concurrent use.
type Service interface {
	// Embed returns the embedding for one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension reports the width of the vectors this service produces.
	Dimension() int
}
