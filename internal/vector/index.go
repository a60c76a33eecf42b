// Package vector maintains an append-only approximate-nearest-neighbor
// index over message embeddings, with a parallel metadata array addressed
// by the same position. Deletes are soft; periodic compaction rebuilds
// the structure from live entries once the deleted fraction crosses a
// threshold.
package vector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/nextlevelbuilder/waindex/internal/model"
)

const (
	// DefaultThreshold rejects low-relevance matches before returning.
	DefaultThreshold = 0.1

	// overfetchFactor widens the raw neighbor scan so post-hoc metadata
	// filtering still fills k results.
	overfetchFactor = 4

	// compactionThreshold is the deleted fraction above which Compact
	// rebuilds the index.
	compactionThreshold = 0.2

	vectorFileName = "vectors.f32"
	metaFileName   = "vectors.meta.jsonl"
)

// Position is an opaque handle into the index. It is only meaningful to
// the index that issued it and is reassigned on compaction.
type Position int

// Metadata is the denormalized filterable copy of a message carried next
// to its embedding so filters run during search without store lookups.
type Metadata struct {
	MessageID     string         `json:"messageId"`
	ChatID        string         `json:"chatId"`
	ChatName      string         `json:"chatName"`
	IsGroup       bool           `json:"isGroup"`
	SenderName    string         `json:"senderName"`
	Timestamp     int64          `json:"timestamp"`
	IsFromMe      bool           `json:"isFromMe"`
	MessageType   string         `json:"messageType"`
	HasURL        bool           `json:"hasUrl"`
	HasScheduling bool           `json:"hasScheduling"`
	Deleted       bool           `json:"deleted"`
	Entities      []model.Entity `json:"entities,omitempty"`
}

// Record is one indexed entry: the embedding source text plus metadata.
// Text is retained so compaction can re-derive embeddings.
type Record struct {
	Text string   `json:"text"`
	Meta Metadata `json:"meta"`
}

// SearchResult is one scored neighbor.
type SearchResult struct {
	Position Position
	Score    float64
	Meta     Metadata
}

// FilterFunc decides whether a candidate passes the structured filters.
type FilterFunc func(Metadata) bool

type metaLogEntry struct {
	Op        string  `json:"op"` // "add" or "del"
	MessageID string  `json:"messageId,omitempty"`
	Dim       int     `json:"dim,omitempty"`
	Record    *Record `json:"record,omitempty"`
}

// Index is the in-memory ANN structure plus its append-only backing
// files. Mutations are serialized by writeMu; mu guards the arrays for
// readers, which only block during the compaction swap.
type Index struct {
	provider EmbeddingProvider
	dir      string

	writeMu sync.Mutex
	mu      sync.RWMutex

	dim     int
	vecs    [][]float32
	recs    []Record
	deleted int

	vecFile  *os.File
	metaFile *os.File
}

// Open loads (or creates) the index files under dir.
func Open(dir string, provider EmbeddingProvider) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create vector dir: %w", err)
	}

	ix := &Index{provider: provider, dir: dir}
	if err := ix.load(); err != nil {
		return nil, err
	}
	if err := ix.openAppendFiles(); err != nil {
		return nil, err
	}

	slog.Info("vector index opened", "dir", dir, "entries", len(ix.recs), "deleted", ix.deleted)
	return ix, nil
}

// Close closes the backing files.
func (ix *Index) Close() error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	if ix.vecFile != nil {
		ix.vecFile.Close()
	}
	if ix.metaFile != nil {
		ix.metaFile.Close()
	}
	return nil
}

// Add embeds rec.Text and appends it. The new entry's position is the
// current length; positions are never reused until a compaction rebuild.
func (ix *Index) Add(ctx context.Context, rec Record) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	embs, err := ix.provider.Embed(ctx, []string{rec.Text})
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(embs) != 1 || len(embs[0]) == 0 {
		return fmt.Errorf("embedding provider returned no vector")
	}
	emb := embs[0]
	l2Normalize(emb)

	if ix.dim == 0 {
		ix.dim = len(emb)
	} else if len(emb) != ix.dim {
		return fmt.Errorf("embedding dimension %d, index expects %d", len(emb), ix.dim)
	}

	if err := ix.appendToFiles(emb, rec); err != nil {
		return err
	}

	ix.mu.Lock()
	ix.vecs = append(ix.vecs, emb)
	ix.recs = append(ix.recs, rec)
	if rec.Meta.Deleted {
		ix.deleted++
	}
	ix.mu.Unlock()
	return nil
}

// SoftDelete marks every live entry for messageID deleted. Reports
// whether anything was marked. O(n) scan; the expected corpus is tens of
// thousands, not billions.
func (ix *Index) SoftDelete(messageID string) (bool, error) {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	ix.mu.Lock()
	found := false
	for i := range ix.recs {
		if ix.recs[i].Meta.MessageID == messageID && !ix.recs[i].Meta.Deleted {
			ix.recs[i].Meta.Deleted = true
			ix.deleted++
			found = true
		}
	}
	ix.mu.Unlock()

	if !found {
		return false, nil
	}

	if err := ix.appendMeta(metaLogEntry{Op: "del", MessageID: messageID}); err != nil {
		return true, err
	}
	return true, nil
}

// Search embeds queryText and returns up to k neighbors by inner-product
// score. Soft-deleted entries are skipped unconditionally before the
// filter runs; matches below threshold are rejected.
func (ix *Index) Search(ctx context.Context, queryText string, k int, threshold float64, filter FilterFunc) ([]SearchResult, error) {
	if k <= 0 {
		k = 10
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	embs, err := ix.provider.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embs) != 1 {
		return nil, nil
	}
	query := embs[0]
	l2Normalize(query)

	ix.mu.RLock()
	candidates := make([]SearchResult, 0, k*overfetchFactor)
	for i := range ix.vecs {
		if ix.recs[i].Meta.Deleted {
			continue
		}
		if len(query) != len(ix.vecs[i]) {
			continue
		}
		score := dot(query, ix.vecs[i])
		if score < threshold {
			continue
		}
		candidates = append(candidates, SearchResult{
			Position: Position(i),
			Score:    score,
			Meta:     ix.recs[i].Meta,
		})
	}
	ix.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > k*overfetchFactor {
		candidates = candidates[:k*overfetchFactor]
	}

	results := make([]SearchResult, 0, k)
	for _, c := range candidates {
		if filter != nil && !filter(c.Meta) {
			continue
		}
		results = append(results, c)
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// Len is the total number of entries including soft-deleted ones.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.recs)
}

// LiveCount is the number of non-deleted entries.
func (ix *Index) LiveCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.recs) - ix.deleted
}

// DeletedFraction is deleted/total, 0 for an empty index.
func (ix *Index) DeletedFraction() float64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.recs) == 0 {
		return 0
	}
	return float64(ix.deleted) / float64(len(ix.recs))
}

// Compact rebuilds the index from live entries once the deleted fraction
// exceeds the threshold, re-deriving embeddings from stored text and
// reassigning positions contiguously from 0. Reads continue against the
// old arrays until the swap. Returns whether a rebuild happened.
func (ix *Index) Compact(ctx context.Context) (bool, error) {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	ix.mu.RLock()
	total := len(ix.recs)
	deleted := ix.deleted
	live := make([]Record, 0, total-deleted)
	for _, rec := range ix.recs {
		if !rec.Meta.Deleted {
			live = append(live, rec)
		}
	}
	ix.mu.RUnlock()

	if total == 0 || float64(deleted)/float64(total) <= compactionThreshold {
		return false, nil
	}

	texts := make([]string, len(live))
	for i, rec := range live {
		texts[i] = rec.Text
	}

	var vecs [][]float32
	if len(texts) > 0 {
		embs, err := ix.provider.Embed(ctx, texts)
		if err != nil {
			return false, fmt.Errorf("re-embed during compaction: %w", err)
		}
		if len(embs) != len(texts) {
			return false, fmt.Errorf("re-embed returned %d vectors for %d texts", len(embs), len(texts))
		}
		vecs = embs
		for _, v := range vecs {
			l2Normalize(v)
		}
	}

	if err := ix.rewriteFiles(vecs, live); err != nil {
		return false, err
	}

	ix.mu.Lock()
	ix.vecs = vecs
	ix.recs = live
	ix.deleted = 0
	if len(vecs) > 0 {
		ix.dim = len(vecs[0])
	}
	ix.mu.Unlock()

	slog.Info("vector index compacted", "before", total, "after", len(live))
	return true, nil
}

// --- persistence ---

func (ix *Index) vecPath() string  { return filepath.Join(ix.dir, vectorFileName) }
func (ix *Index) metaPath() string { return filepath.Join(ix.dir, metaFileName) }

func (ix *Index) openAppendFiles() error {
	vf, err := os.OpenFile(ix.vecPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open vector file: %w", err)
	}
	mf, err := os.OpenFile(ix.metaPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		vf.Close()
		return fmt.Errorf("open meta file: %w", err)
	}
	ix.vecFile = vf
	ix.metaFile = mf
	return nil
}

func (ix *Index) appendToFiles(emb []float32, rec Record) error {
	if err := binary.Write(ix.vecFile, binary.LittleEndian, emb); err != nil {
		return fmt.Errorf("append vector: %w", err)
	}
	// Dim in every add entry lets load reslice the flat file exactly,
	// even when a crash left a trailing orphan vector with no meta line.
	return ix.appendMeta(metaLogEntry{Op: "add", Dim: len(emb), Record: &rec})
}

func (ix *Index) appendMeta(entry metaLogEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal meta entry: %w", err)
	}
	if _, err := ix.metaFile.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append meta: %w", err)
	}
	return nil
}

// load replays the metadata log and reads the parallel vector file.
func (ix *Index) load() error {
	mf, err := os.Open(ix.metaPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open meta file: %w", err)
	}
	defer mf.Close()

	var (
		recs   []Record
		logDim int
	)
	deletedIDs := make(map[string][]int) // replay order matters: track per-add

	scanner := bufio.NewScanner(mf)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		var entry metaLogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			slog.Warn("skipping corrupt meta log line", "err", err)
			continue
		}
		switch entry.Op {
		case "add":
			if entry.Record != nil {
				recs = append(recs, *entry.Record)
				deletedIDs[entry.Record.Meta.MessageID] = append(deletedIDs[entry.Record.Meta.MessageID], len(recs)-1)
			}
			if logDim == 0 && entry.Dim > 0 {
				logDim = entry.Dim
			}
		case "del":
			for _, i := range deletedIDs[entry.MessageID] {
				recs[i].Meta.Deleted = true
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read meta log: %w", err)
	}

	vecs, dim, err := readVectorFile(ix.vecPath(), len(recs), logDim)
	if err != nil {
		return err
	}

	if len(vecs) < len(recs) {
		slog.Warn("vector file shorter than meta log, truncating", "vectors", len(vecs), "records", len(recs))
		recs = recs[:len(vecs)]
	}

	deleted := 0
	for _, rec := range recs {
		if rec.Meta.Deleted {
			deleted++
		}
	}

	ix.vecs = vecs
	ix.recs = recs
	ix.deleted = deleted
	ix.dim = dim
	return nil
}

// readVectorFile slices the flat float32 file into vectors. dim comes
// from the meta log when available; only legacy files without a logged
// dimension fall back to deriving it from the element count.
func readVectorFile(path string, count, dim int) ([][]float32, int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) || len(data) == 0 || count == 0 {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read vector file: %w", err)
	}

	floats := len(data) / 4
	if dim <= 0 {
		if floats%count != 0 {
			// Possibly a partial trailing write; derive dim from full rows.
			dimGuess := floats / count
			if dimGuess == 0 {
				return nil, 0, nil
			}
			floats = dimGuess * count
		}
		dim = floats / count
	}

	vecs := make([][]float32, 0, count)
	for i := 0; i < count && (i+1)*dim*4 <= len(data); i++ {
		vec := make([]float32, dim)
		off := i * dim * 4
		if err := binary.Read(bytes.NewReader(data[off:off+dim*4]), binary.LittleEndian, vec); err != nil {
			return nil, 0, fmt.Errorf("decode vector %d: %w", i, err)
		}
		vecs = append(vecs, vec)
	}
	return vecs, dim, nil
}

// rewriteFiles atomically replaces both backing files with the compacted
// contents via temp-file rename.
func (ix *Index) rewriteFiles(vecs [][]float32, recs []Record) error {
	tmpVec := ix.vecPath() + ".tmp"
	tmpMeta := ix.metaPath() + ".tmp"

	vf, err := os.Create(tmpVec)
	if err != nil {
		return fmt.Errorf("create tmp vector file: %w", err)
	}
	for _, v := range vecs {
		if err := binary.Write(vf, binary.LittleEndian, v); err != nil {
			vf.Close()
			return fmt.Errorf("write tmp vector: %w", err)
		}
	}
	if err := vf.Close(); err != nil {
		return fmt.Errorf("close tmp vector file: %w", err)
	}

	mf, err := os.Create(tmpMeta)
	if err != nil {
		return fmt.Errorf("create tmp meta file: %w", err)
	}
	w := bufio.NewWriter(mf)
	for i := range recs {
		line, err := json.Marshal(metaLogEntry{Op: "add", Dim: len(vecs[i]), Record: &recs[i]})
		if err != nil {
			mf.Close()
			return fmt.Errorf("marshal compacted meta: %w", err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		mf.Close()
		return fmt.Errorf("flush tmp meta: %w", err)
	}
	if err := mf.Close(); err != nil {
		return fmt.Errorf("close tmp meta file: %w", err)
	}

	// Swap the append handles to the new files.
	ix.vecFile.Close()
	ix.metaFile.Close()
	if err := os.Rename(tmpVec, ix.vecPath()); err != nil {
		return fmt.Errorf("swap vector file: %w", err)
	}
	if err := os.Rename(tmpMeta, ix.metaPath()); err != nil {
		return fmt.Errorf("swap meta file: %w", err)
	}
	return ix.openAppendFiles()
}
