// Package search is the hybrid retrieval core: it feeds ingested messages
// through feature extraction into the lexical store and the vector index,
// then answers queries by running both sides in parallel and merging the
// ranked results.
package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/waindex/internal/extract"
	"github.com/nextlevelbuilder/waindex/internal/model"
	"github.com/nextlevelbuilder/waindex/internal/query"
	"github.com/nextlevelbuilder/waindex/internal/store"
	"github.com/nextlevelbuilder/waindex/internal/vector"
)

const defaultSearchLimit = 10

// IngestStats counts ingestion outcomes. In dry-run mode the counters
// advance exactly as they would for real, with zero writes.
type IngestStats struct {
	Processed int `json:"processed"`
	Indexed   int `json:"indexed"`
	Skipped   int `json:"skipped"`
	Deleted   int `json:"deleted"`
}

// Engine wires extraction, the lexical store, and the vector index
// behind one ingestion and query surface.
type Engine struct {
	store      *store.Store
	index      *vector.Index
	extractor  *extract.Extractor
	normalizer *query.Normalizer
	log        *slog.Logger
	now        func() time.Time
	dryRun     bool

	mu    sync.Mutex
	stats IngestStats
}

// New builds an engine over an open store and vector index.
func New(st *store.Store, ix *vector.Index) *Engine {
	ex := extract.New()
	return &Engine{
		store:      st,
		index:      ix,
		extractor:  ex,
		normalizer: query.New(ex),
		log:        slog.Default(),
		now:        time.Now,
	}
}

// SetDryRun switches the engine into validate-and-count mode: extraction
// and classification run, nothing is written.
func (e *Engine) SetDryRun(on bool) { e.dryRun = on }

// SetClock overrides the reference time used for relative date parsing.
func (e *Engine) SetClock(fn func() time.Time) { e.now = fn }

// Stats returns a copy of the ingestion counters.
func (e *Engine) Stats() IngestStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) ready() error {
	if e.store == nil {
		return &NotReadyError{Component: "message store"}
	}
	if e.index == nil {
		return &NotReadyError{Component: "vector index"}
	}
	return nil
}

// Ingest persists one inbound message and indexes its embedding. Calling
// it again with the same ID is the edit path: the stored row is
// overwritten and a fresh vector is appended with the prior one
// soft-deleted, so the index only ever grows between compactions.
func (e *Engine) Ingest(ctx context.Context, ev model.RawMessageEvent) error {
	if err := e.ready(); err != nil {
		return err
	}
	if ev.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}

	e.mu.Lock()
	e.stats.Processed++
	e.mu.Unlock()

	if strings.TrimSpace(ev.Content) == "" {
		e.mu.Lock()
		e.stats.Skipped++
		e.mu.Unlock()
		e.log.Debug("skipping empty message", "id", ev.ID, "chat", ev.ChatName)
		return nil
	}

	// Relative dates inside the message resolve against when it was sent.
	ref := time.UnixMilli(ev.Timestamp)
	ext := e.extractor.ExtractAt(ev.Content, ev.MediaType, ref)

	msg := model.Message{
		ID:             ev.ID,
		ChatID:         ev.ChatID,
		ChatName:       ev.ChatName,
		IsGroupMessage: ev.IsGroupMessage,
		SenderName:     senderOrSelf(ev),
		SenderNumber:   ev.SenderNumber,
		Content:        ev.Content,
		Timestamp:      ev.Timestamp,
		MessageType:    ext.MessageType,
		Languages:      ext.Languages,
		IsFromMe:       ev.IsFromMe,
		URLs:           ext.URLs,
		Entities:       ext.Entities,
		Scheduling:     ext.Scheduling,
	}

	if e.dryRun {
		e.mu.Lock()
		e.stats.Indexed++
		e.mu.Unlock()
		return nil
	}

	if err := e.store.Save(msg); err != nil {
		return &PersistenceError{Op: "save message", Err: err}
	}

	if _, err := e.index.SoftDelete(msg.ID); err != nil {
		return &PersistenceError{Op: "retire prior vector", Err: err}
	}
	rec := vector.Record{
		Text: buildEmbeddingText(msg),
		Meta: vectorMetadata(msg),
	}
	if err := e.index.Add(ctx, rec); err != nil {
		return &PersistenceError{Op: "index vector", Err: err}
	}

	e.mu.Lock()
	e.stats.Indexed++
	e.mu.Unlock()
	return nil
}

// IngestEdit re-runs the ingest pipeline for an edited message. The
// prior vector is retired and a fresh one appended; the lexical row is
// overwritten in place.
func (e *Engine) IngestEdit(ctx context.Context, messageID string, ev model.RawMessageEvent) error {
	if messageID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	ev.ID = messageID
	return e.Ingest(ctx, ev)
}

// IngestDelete tags the stored row deleted and retires its vectors.
// Unknown IDs are a no-op.
func (e *Engine) IngestDelete(_ context.Context, messageID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if messageID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}

	if e.dryRun {
		e.mu.Lock()
		e.stats.Deleted++
		e.mu.Unlock()
		return nil
	}

	if err := e.store.TagDeleted(messageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return &PersistenceError{Op: "tag deleted", Err: err}
	}
	if _, err := e.index.SoftDelete(messageID); err != nil {
		return &PersistenceError{Op: "retire vector", Err: err}
	}

	e.mu.Lock()
	e.stats.Deleted++
	e.mu.Unlock()
	return nil
}

// Search runs the full hybrid pipeline over a raw natural-language query:
// normalization, then lexical and vector retrieval in parallel, then the
// ranked merge. An empty merged list is a valid answer. direction is
// "sent", "received", or ""/"all" for both.
func (e *Engine) Search(ctx context.Context, rawQuery string, limit int, direction string) ([]model.Result, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(rawQuery) == "" {
		return nil, &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	fromMe, err := directionFilter(direction)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	n := e.normalizer.NormalizeAt(rawQuery, e.now())

	filter := store.Filter{
		Content: n.CleanQuery,
		Sender:  n.SenderFilter,
		FromMe:  fromMe,
		Limit:   limit * 2,
	}
	if n.DateRange != nil {
		filter.StartMS = n.DateRange.Start
		filter.EndMS = n.DateRange.End
	}
	if n.URLFilter {
		filter.HasURL = boolPtr(true)
	}
	if n.SchedulingFilter {
		filter.HasScheduling = boolPtr(true)
	}

	var (
		lexical []model.Message
		vecHits []vector.SearchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexical, err = e.store.Query(filter)
		if err != nil {
			return &PersistenceError{Op: "lexical query", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		vecHits, err = e.index.Search(gctx, n.CleanQuery, limit*2, 0, vectorFilter(n, fromMe))
		if err != nil {
			return &PersistenceError{Op: "vector query", Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := mergeResults(lexical, vecHits, e.store.GetByID, limit)
	e.log.Debug("hybrid search",
		"query", rawQuery, "clean", n.CleanQuery,
		"lexical", len(lexical), "vector", len(vecHits), "merged", len(results))
	return results, nil
}

// FindPersonConversations returns messages involving a person within an
// optional named period, matching sender, content, and chat name.
func (e *Engine) FindPersonConversations(person, period string, limit int) ([]model.Result, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(person) == "" {
		return nil, &ValidationError{Field: "person", Reason: "must not be empty"}
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	startMS, endMS := e.periodBounds(period)
	msgs, err := e.store.BySenderAcrossChats(person, startMS, endMS, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "person search", Err: err}
	}
	return lexicalResults(msgs), nil
}

// MessagesByDate returns messages inside a natural-language period such
// as "yesterday", "this week", or "השבוע", optionally narrowed to one
// sender.
func (e *Engine) MessagesByDate(period, sender string, limit int) ([]model.Result, *query.DateRange, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	rng := e.normalizer.ParsePeriod(period, e.now())
	if rng == nil {
		return nil, nil, &ValidationError{Field: "period", Reason: "not a recognized date expression"}
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	msgs, err := e.store.Query(store.Filter{Sender: sender, StartMS: rng.Start, EndMS: rng.End, Limit: limit})
	if err != nil {
		return nil, nil, &PersistenceError{Op: "date query", Err: err}
	}
	return lexicalResults(msgs), rng, nil
}

// URLsBySender returns the links a person shared, most recent first.
func (e *Engine) URLsBySender(person string, limit int) ([]model.URLResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(person) == "" {
		return nil, &ValidationError{Field: "person", Reason: "must not be empty"}
	}
	urls, err := e.store.URLsBySender(person, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "url lookup", Err: err}
	}
	return urls, nil
}

// threadContextWindow pads the conversation window fetched around a
// person's messages: a plan is usually proposed a few messages before the
// person replies, often by someone else.
const threadContextWindow = time.Hour

// FindScheduleWithPerson returns the conversation threads where plans
// with a person are being made inside a timeframe. The person match runs
// across sender, content, and chat name; each matching chat is then
// widened to its surrounding messages and kept only if the thread carries
// scheduling intent. The proposal itself often comes from another sender,
// so filtering to the person's own scheduling messages would miss it.
func (e *Engine) FindScheduleWithPerson(person, period string, limit int) ([]model.Result, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(person) == "" {
		return nil, &ValidationError{Field: "person", Reason: "must not be empty"}
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	startMS, endMS := e.periodBounds(period)
	anchors, err := e.store.BySenderAcrossChats(person, startMS, endMS, limit*4)
	if err != nil {
		return nil, &PersistenceError{Op: "schedule search", Err: err}
	}

	type window struct{ start, end int64 }
	windows := make(map[string]window)
	for _, m := range anchors {
		w, ok := windows[m.ChatID]
		if !ok {
			w = window{start: m.Timestamp, end: m.Timestamp}
		}
		if m.Timestamp < w.start {
			w.start = m.Timestamp
		}
		if m.Timestamp > w.end {
			w.end = m.Timestamp
		}
		windows[m.ChatID] = w
	}

	seen := make(map[string]bool)
	var thread []model.Message
	for chatID, w := range windows {
		start := w.start - threadContextWindow.Milliseconds()
		end := w.end + threadContextWindow.Milliseconds()
		if startMS > 0 && start < startMS {
			start = startMS
		}
		if endMS > 0 && end > endMS {
			end = endMS
		}

		msgs, err := e.store.Query(store.Filter{ChatID: chatID, StartMS: start, EndMS: end, Limit: limit * 4})
		if err != nil {
			return nil, &PersistenceError{Op: "schedule thread fetch", Err: err}
		}
		if !threadHasScheduling(msgs) {
			continue
		}
		for _, m := range msgs {
			if !seen[m.ID] {
				seen[m.ID] = true
				thread = append(thread, m)
			}
		}
	}

	sort.Slice(thread, func(i, j int) bool { return thread[i].Timestamp > thread[j].Timestamp })
	if len(thread) > limit {
		thread = thread[:limit]
	}
	return lexicalResults(thread), nil
}

func threadHasScheduling(msgs []model.Message) bool {
	for _, m := range msgs {
		if m.MessageType == model.TypeScheduling || (m.Scheduling != nil && m.Scheduling.IsScheduling) {
			return true
		}
	}
	return false
}

// CheckPlansForDay returns scheduling messages whose window falls on the
// named day ("tomorrow", "friday", "מחר").
func (e *Engine) CheckPlansForDay(day string, limit int) ([]model.Result, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	rng := e.normalizer.ParsePeriod(day, e.now())
	if rng == nil {
		return nil, &ValidationError{Field: "day", Reason: "not a recognized date expression"}
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	msgs, err := e.store.Query(store.Filter{
		HasScheduling: boolPtr(true),
		Limit:         limit * 4,
	})
	if err != nil {
		return nil, &PersistenceError{Op: "plans query", Err: err}
	}

	// A plan for Friday is usually sent before Friday, so the day window
	// is matched against resolved time references, falling back to the
	// message timestamp.
	matched := msgs[:0:0]
	for _, m := range msgs {
		if planFallsOn(m, *rng) {
			matched = append(matched, m)
			if len(matched) == limit {
				break
			}
		}
	}
	return lexicalResults(matched), nil
}

// CorpusStats aggregates the store and index counters exposed by the
// CLI's stats and doctor output.
type CorpusStats struct {
	LiveMessages int
	TotalRows    int
	MostRecent   int64
	Vectors      int
	LiveVectors  int
	Groups       []store.GroupStats
}

// CorpusStatsNow collects current corpus statistics.
func (e *Engine) CorpusStatsNow() (CorpusStats, error) {
	if err := e.ready(); err != nil {
		return CorpusStats{}, err
	}

	var (
		cs  CorpusStats
		err error
	)
	if cs.LiveMessages, err = e.store.MessageCount(); err != nil {
		return cs, &PersistenceError{Op: "message count", Err: err}
	}
	if cs.TotalRows, err = e.store.TotalCount(); err != nil {
		return cs, &PersistenceError{Op: "total count", Err: err}
	}
	if cs.MostRecent, err = e.store.MostRecentTimestamp(); err != nil {
		return cs, &PersistenceError{Op: "most recent", Err: err}
	}
	if cs.Groups, err = e.store.GroupStatsAll(); err != nil {
		return cs, &PersistenceError{Op: "group stats", Err: err}
	}
	cs.Vectors = e.index.Len()
	cs.LiveVectors = e.index.LiveCount()
	return cs, nil
}

// Compact triggers a vector index rebuild when enough entries are
// soft-deleted. Safe to call periodically.
func (e *Engine) Compact(ctx context.Context) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	return e.index.Compact(ctx)
}

func (e *Engine) periodBounds(period string) (int64, int64) {
	if strings.TrimSpace(period) == "" {
		return 0, 0
	}
	rng := e.normalizer.ParsePeriod(period, e.now())
	if rng == nil {
		return 0, 0
	}
	return rng.Start, rng.End
}

func planFallsOn(m model.Message, rng query.DateRange) bool {
	for _, ent := range m.Entities {
		if ent.Type == model.EntityTime && ent.ParsedTime > 0 && rng.Contains(ent.ParsedTime) {
			return true
		}
	}
	return rng.Contains(m.Timestamp)
}

func lexicalResults(msgs []model.Message) []model.Result {
	out := make([]model.Result, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toResult(m, nil, model.SourceDatabase))
	}
	return out
}

// buildEmbeddingText folds extracted entity values into the content so
// the embedding carries structure the raw text only implies.
func buildEmbeddingText(msg model.Message) string {
	if len(msg.Entities) == 0 {
		return msg.Content
	}
	var b strings.Builder
	b.WriteString(msg.Content)
	for _, ent := range msg.Entities {
		b.WriteByte(' ')
		b.WriteString(ent.Value)
	}
	return b.String()
}

func vectorMetadata(msg model.Message) vector.Metadata {
	return vector.Metadata{
		MessageID:     msg.ID,
		ChatID:        msg.ChatID,
		ChatName:      msg.ChatName,
		IsGroup:       msg.IsGroupMessage,
		SenderName:    msg.SenderName,
		Timestamp:     msg.Timestamp,
		IsFromMe:      msg.IsFromMe,
		MessageType:   string(msg.MessageType),
		HasURL:        len(msg.URLs) > 0,
		HasScheduling: msg.Scheduling != nil && msg.Scheduling.IsScheduling,
		Entities:      msg.Entities,
	}
}

// directionFilter maps the tool-surface direction argument onto the
// is-from-me flag.
func directionFilter(direction string) (*bool, error) {
	switch direction {
	case "", "all":
		return nil, nil
	case "sent":
		return boolPtr(true), nil
	case "received":
		return boolPtr(false), nil
	default:
		return nil, &ValidationError{Field: "messageTypeFilter", Reason: `must be "sent", "received", or "all"`}
	}
}

// vectorFilter turns normalized query constraints into a metadata
// predicate applied after the overfetched neighbor scan.
func vectorFilter(n query.Normalized, fromMe *bool) vector.FilterFunc {
	sender := strings.ToLower(n.SenderFilter)
	return func(m vector.Metadata) bool {
		if sender != "" && !strings.Contains(strings.ToLower(m.SenderName), sender) {
			return false
		}
		if fromMe != nil && m.IsFromMe != *fromMe {
			return false
		}
		if n.DateRange != nil && !n.DateRange.Contains(m.Timestamp) {
			return false
		}
		if n.URLFilter && !m.HasURL {
			return false
		}
		if n.SchedulingFilter && !m.HasScheduling {
			return false
		}
		return true
	}
}

func senderOrSelf(ev model.RawMessageEvent) string {
	if ev.IsFromMe {
		return model.SelfSender
	}
	if ev.SenderName == "" {
		return ev.SenderNumber
	}
	return ev.SenderName
}

func boolPtr(b bool) *bool { return &b }
