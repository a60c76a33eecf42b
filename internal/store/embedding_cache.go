package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// ContentHash returns a short SHA256 digest of text, used as the
// embedding-cache key.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h[:16])
}

// GetCachedEmbedding returns a cached embedding by content hash.
func (s *Store) GetCachedEmbedding(contentHash, provider, model string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var embJSON string
	err := s.db.Get(&embJSON,
		"SELECT embedding FROM embedding_cache WHERE hash = ? AND provider = ? AND model = ?",
		contentHash, provider, model)
	if err != nil {
		return nil, false
	}

	var emb []float32
	if err := json.Unmarshal([]byte(embJSON), &emb); err != nil {
		return nil, false
	}
	return emb, true
}

// CacheEmbedding stores an embedding keyed by content hash.
func (s *Store) CacheEmbedding(contentHash, provider, model string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	embJSON, _ := json.Marshal(embedding)
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO embedding_cache (hash, provider, model, embedding, dims, updated_at)
		VALUES (?, ?, ?, ?, ?, strftime('%s','now'))
	`, contentHash, provider, model, string(embJSON), len(embedding))
	if err != nil {
		return fmt.Errorf("cache embedding: %w", err)
	}
	return nil
}
