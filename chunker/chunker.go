// Package chunker splits long documents into token-bounded chunks so they
// can be embedded through the cache's batch path. Chunks overlap to
// preserve context across boundaries.
package chunker

import "errors"

var (
	// ErrInvalidChunkSize indicates chunk size is invalid (<=0).
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidOverlap indicates overlap is negative.
	ErrInvalidOverlap = errors.New("overlap must be non-negative")

	// ErrOverlapTooLarge indicates overlap is >= chunk size.
	ErrOverlapTooLarge = errors.New("overlap must be less than chunk size")

	// ErrEmptyText indicates text to chunk is empty.
	ErrEmptyText = errors.New("cannot chunk empty text")

	// ErrTokenizerFailed indicates tokenization failed.
	ErrTokenizerFailed = errors.New("tokenization failed")
)

// Config holds chunking parameters.
type Config struct {
	// ChunkSize is the target number of tokens per chunk.
	// Default: 512
	ChunkSize int

	// Overlap is the number of tokens shared between adjacent chunks.
	// Default: 50
	Overlap int
}

// DefaultConfig returns the default chunking parameters.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 512,
		Overlap:   50,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.Overlap < 0 {
		return ErrInvalidOverlap
	}
	if c.Overlap >= c.ChunkSize {
		return ErrOverlapTooLarge
	}
	return nil
}

// Chunk is one token-bounded slice of a document.
type Chunk struct {
	// Text is the decoded chunk content.
	Text string

	// StartToken and EndToken locate the chunk in the original token
	// stream.
	StartToken int
	EndToken   int

	// Index is the chunk's position in the document.
	Index int
}

// Chunker splits text into chunks.
type Chunker interface {
	// ChunkText splits text per the chunker's strategy.
	ChunkText(text string) ([]Chunk, error)

	// CountTokens counts tokens in text.
	CountTokens(text string) (int, error)
}
