package vector

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// EmbeddingProvider generates vector embeddings for text.
type EmbeddingProvider interface {
	Name() string
	Model() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingCache is the durable cache behind the in-process LRU. The
// lexical store satisfies this.
type EmbeddingCache interface {
	GetCachedEmbedding(contentHash, provider, model string) ([]float32, bool)
	CacheEmbedding(contentHash, provider, model string, embedding []float32) error
}

const localDim = 256

// LocalProvider is a deterministic feature-hashing embedder. It needs no
// network or model files, which keeps indexing fully offline; token and
// character-trigram buckets give it some resilience across word forms
// and scripts.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider { return &LocalProvider{} }

func (p *LocalProvider) Name() string  { return "local" }
func (p *LocalProvider) Model() string { return "hash-v1" }

func (p *LocalProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = hashEmbed(text)
	}
	return out, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, localDim)
	lower := strings.ToLower(text)

	for _, tok := range strings.Fields(lower) {
		vec[bucket("t:"+tok)] += 1
	}

	runes := []rune(lower)
	for i := 0; i+3 <= len(runes); i++ {
		vec[bucket("g:"+string(runes[i:i+3]))] += 0.5
	}

	l2Normalize(vec)
	return vec
}

func bucket(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32() % localDim)
}

// CachedProvider wraps a provider with an in-process LRU over a durable
// cache, keyed by content hash plus provider identity.
type CachedProvider struct {
	inner   EmbeddingProvider
	durable EmbeddingCache
	lru     *lru.Cache[string, []float32]
	hashFn  func(string) string
}

// NewCachedProvider builds the two-tier cache. size bounds the LRU.
func NewCachedProvider(inner EmbeddingProvider, durable EmbeddingCache, size int, hashFn func(string) string) (*CachedProvider, error) {
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedding lru: %w", err)
	}
	return &CachedProvider{inner: inner, durable: durable, lru: cache, hashFn: hashFn}, nil
}

func (p *CachedProvider) Name() string  { return p.inner.Name() }
func (p *CachedProvider) Model() string { return p.inner.Model() }

func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		key := p.hashFn(text)
		if emb, ok := p.lru.Get(key); ok {
			out[i] = emb
			continue
		}
		if p.durable != nil {
			if emb, ok := p.durable.GetCachedEmbedding(key, p.inner.Name(), p.inner.Model()); ok {
				p.lru.Add(key, emb)
				out[i] = emb
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := p.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(fresh), len(missing))
	}

	for j, emb := range fresh {
		i := missingIdx[j]
		out[i] = emb
		key := p.hashFn(texts[i])
		p.lru.Add(key, emb)
		if p.durable != nil {
			if err := p.durable.CacheEmbedding(key, p.inner.Name(), p.inner.Model(), emb); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
