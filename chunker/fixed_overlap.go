package chunker

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// FixedOverlap chunks text into fixed-size token windows with overlap,
// using tiktoken's cl100k_base encoding.
type FixedOverlap struct {
	config   Config
	encoding tokenizer.Codec
}

// NewFixedOverlap creates a FixedOverlap chunker.
func NewFixedOverlap(config Config) (*FixedOverlap, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunk config: %w", err)
	}

	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}

	return &FixedOverlap{config: config, encoding: enc}, nil
}

// CountTokens counts the tokens in text.
func (c *FixedOverlap) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	ids, _, err := c.encoding.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTokenizerFailed, err)
	}
	return len(ids), nil
}

// ChunkText splits text into overlapping token windows. Text that fits in
// a single window is returned as one chunk.
func (c *FixedOverlap) ChunkText(text string) ([]Chunk, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	tokens, _, err := c.encoding.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenizerFailed, err)
	}

	total := len(tokens)
	if total <= c.config.ChunkSize {
		return []Chunk{{Text: text, StartToken: 0, EndToken: total, Index: 0}}, nil
	}

	stride := c.config.ChunkSize - c.config.Overlap

	var chunks []Chunk
	for start, index := 0, 0; start < total; start, index = start+stride, index+1 {
		end := start + c.config.ChunkSize
		if end > total {
			end = total
		}

		chunkText, err := c.encoding.Decode(tokens[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to decode chunk %d: %w", index, err)
		}

		chunks = append(chunks, Chunk{
			Text:       chunkText,
			StartToken: start,
			EndToken:   end,
			Index:      index,
		})

		if end >= total {
			break
		}
	}

	return chunks, nil
}
