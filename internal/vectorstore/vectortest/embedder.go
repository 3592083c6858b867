// Package vectortest provides a deterministic embedder for exercising
// vector stores without a network backend.
package vectortest

import (
	"context"
	"strings"
	"sync"
	"unicode"
)

const dimension = 256

// TokenEmbedder embeds text as a bag-of-words vector. Tokens are assigned
// stable indices in order of first appearance, so similar texts get high
// cosine similarity and unrelated texts get zero. Case-insensitive.
type TokenEmbedder struct {
	mu    sync.Mutex
	vocab map[string]int
}

func NewTokenEmbedder() *TokenEmbedder {
	return &TokenEmbedder{vocab: make(map[string]int)}
}

func (e *TokenEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, dimension)
		for _, tok := range tokenize(text) {
			idx, ok := e.vocab[tok]
			if !ok {
				idx = len(e.vocab) % dimension
				e.vocab[tok] = idx
			}
			vec[idx]++
		}
		out[i] = vec
	}
	return out, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
