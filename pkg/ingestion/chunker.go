package ingestion

// Chunker splits policy text into fixed-size overlapping segments.
// Overlap keeps clause boundaries retrievable from either neighboring
// chunk.
type Chunker struct {
	size    int
	overlap int
}

// minChunkLen drops degenerate tail fragments that carry no retrievable
// content.
const minChunkLen = 50

// NewChunker creates a chunker. Size must exceed overlap; zero values take
// the defaults (512/50).
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the text's chunks in document order. Tails shorter than
// minChunkLen are dropped unless they are the only content.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{text}
	}

	var chunks []string
	step := c.size - c.overlap
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := runes[start:end]
		if len(chunk) > minChunkLen {
			chunks = append(chunks, string(chunk))
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
