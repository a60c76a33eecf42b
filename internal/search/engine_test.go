package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/waindex/internal/model"
	"github.com/nextlevelbuilder/waindex/internal/store"
	"github.com/nextlevelbuilder/waindex/internal/vector"
)

// Tuesday, Sep 1 2026 noon UTC.
var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *store.Store, *vector.Index) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "messages.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ix, err := vector.Open(t.TempDir(), vector.NewLocalProvider())
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
		ix.Close()
	})

	e := New(st, ix)
	e.SetClock(func() time.Time { return testNow })
	return e, st, ix
}

func event(id, sender, content string, ts time.Time) model.RawMessageEvent {
	return model.RawMessageEvent{
		ID:         id,
		ChatID:     "chat-" + sender,
		ChatName:   sender,
		SenderName: sender,
		Content:    content,
		Timestamp:  ts.UnixMilli(),
	}
}

func TestIngestAndHybridSearch(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	events := []model.RawMessageEvent{
		event("m1", "Yahav", "let's do a barbecue tomorrow evening", testNow.Add(-2*time.Hour)),
		event("m2", "Danny", "did you see the new movie trailer", testNow.Add(-3*time.Hour)),
		event("m3", "Yahav", "I'll bring the meat for the barbecue", testNow.Add(-1*time.Hour)),
	}
	for _, ev := range events {
		if err := e.Ingest(ctx, ev); err != nil {
			t.Fatalf("ingest %s: %v", ev.ID, err)
		}
	}

	results, err := e.Search(ctx, "barbecue", 10, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) < 2 {
		t.Fatalf("got %d results, want at least 2", len(results))
	}
	seen := map[string]int{}
	for _, r := range results {
		seen[r.ID]++
		if seen[r.ID] > 1 {
			t.Fatalf("message %s returned twice", r.ID)
		}
		if r.ID == "m2" {
			t.Error("unrelated message matched barbecue")
		}
	}
	// Both retrieval sides match these, so the merged source reflects it.
	for _, r := range results {
		if r.Source == model.SourceBoth && r.RelevanceScore == nil {
			t.Errorf("result %s marked both but carries no score", r.ID)
		}
	}
}

func TestSearchSenderFilter(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	if err := e.Ingest(ctx, event("m1", "Yahav", "lunch plans for the team", testNow.Add(-time.Hour))); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := e.Ingest(ctx, event("m2", "Danny", "lunch plans sound great", testNow.Add(-time.Hour))); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	results, err := e.Search(ctx, "lunch plans from Yahav", 10, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	for _, r := range results {
		if r.SenderName != "Yahav" {
			t.Errorf("sender filter leaked message from %s", r.SenderName)
		}
	}
}

func TestReingestIsEditNotDuplicate(t *testing.T) {
	e, st, ix := newTestEngine(t)
	ctx := context.Background()

	ev := event("m1", "Yahav", "dinner at eight", testNow.Add(-time.Hour))
	if err := e.Ingest(ctx, ev); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	ev.Content = "dinner moved to nine"
	if err := e.IngestEdit(ctx, "m1", ev); err != nil {
		t.Fatalf("edit ingest: %v", err)
	}

	msg, err := st.GetByID("m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if msg.Content != "dinner moved to nine" {
		t.Errorf("store kept stale content %q", msg.Content)
	}
	if got, err := st.TotalCount(); err != nil || got != 1 {
		t.Errorf("total count = %d (%v), want 1", got, err)
	}
	// The index appends on every ingest and retires the prior vector.
	if ix.Len() != 2 || ix.LiveCount() != 1 {
		t.Errorf("index len=%d live=%d, want 2/1", ix.Len(), ix.LiveCount())
	}

	results, err := e.Search(ctx, "dinner", 10, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Content != "dinner moved to nine" {
		t.Fatalf("search should return only the edited row, got %+v", results)
	}
}

func TestReingestIdenticalContentStillAppendsVector(t *testing.T) {
	e, st, ix := newTestEngine(t)
	ctx := context.Background()

	ev := event("m1", "Yahav", "dinner at eight", testNow.Add(-time.Hour))
	if err := e.Ingest(ctx, ev); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	// Duplicate delivery of identical content is not de-duplicated at the
	// index level: the prior vector is retired and a fresh one appended.
	if err := e.Ingest(ctx, ev); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	if got, err := st.TotalCount(); err != nil || got != 1 {
		t.Errorf("total count = %d (%v), want 1", got, err)
	}
	if ix.Len() != 2 || ix.LiveCount() != 1 {
		t.Errorf("index len=%d live=%d, want 2/1", ix.Len(), ix.LiveCount())
	}

	results, err := e.Search(ctx, "dinner", 10, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "m1" {
		t.Fatalf("search after duplicate ingest = %+v, want one m1 row", results)
	}
}

func TestIngestDeleteHidesMessage(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	if err := e.Ingest(ctx, event("m1", "Yahav", "secret surprise party details", testNow.Add(-time.Hour))); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := e.IngestDelete(ctx, "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	results, err := e.Search(ctx, "surprise party", 10, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("deleted message still searchable: %+v", results)
	}

	// Deleting an unknown ID is a no-op, not an error.
	if err := e.IngestDelete(ctx, "never-existed"); err != nil {
		t.Errorf("unknown delete: %v", err)
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	e, st, ix := newTestEngine(t)
	e.SetDryRun(true)
	ctx := context.Background()

	events := []model.RawMessageEvent{
		event("m1", "Yahav", "barbecue tomorrow", testNow),
		event("m2", "Danny", "", testNow),
		event("m3", "Danny", "movie tonight", testNow),
	}
	for _, ev := range events {
		if err := e.Ingest(ctx, ev); err != nil {
			t.Fatalf("ingest %s: %v", ev.ID, err)
		}
	}

	stats := e.Stats()
	if stats.Processed != 3 || stats.Indexed != 2 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want processed 3 / indexed 2 / skipped 1", stats)
	}
	if got, _ := st.TotalCount(); got != 0 {
		t.Errorf("dry run wrote %d rows to the store", got)
	}
	if ix.Len() != 0 {
		t.Errorf("dry run wrote %d vectors", ix.Len())
	}
}

func TestHebrewSchedulingRoundTrip(t *testing.T) {
	e, st, _ := newTestEngine(t)
	ctx := context.Background()

	// A BBQ proposal from me, answered by Yahav, all in one group chat
	// within a ten minute window.
	base := testNow.Add(-2 * time.Hour)
	events := []model.RawMessageEvent{
		{
			ID: "m1", ChatID: "grp-1", ChatName: "Friends", IsGroupMessage: true,
			SenderName: "Me", IsFromMe: true,
			Content: "יש על האש מחר?", Timestamp: base.UnixMilli(),
		},
		{
			ID: "m2", ChatID: "grp-1", ChatName: "Friends", IsGroupMessage: true,
			SenderName: "Yahav",
			Content: "כן", Timestamp: base.Add(4 * time.Minute).UnixMilli(),
		},
		{
			ID: "m3", ChatID: "grp-1", ChatName: "Friends", IsGroupMessage: true,
			SenderName: "Yahav",
			Content: "אם יהיה שינוי אעדכן", Timestamp: base.Add(9 * time.Minute).UnixMilli(),
		},
	}
	for _, ev := range events {
		if err := e.Ingest(ctx, ev); err != nil {
			t.Fatalf("ingest %s: %v", ev.ID, err)
		}
	}

	// The proposal itself carries scheduling intent.
	m1, err := st.GetByID("m1")
	if err != nil {
		t.Fatalf("get m1: %v", err)
	}
	if m1.Scheduling == nil || !m1.Scheduling.IsScheduling {
		t.Fatal("BBQ proposal should carry scheduling intent")
	}
	if m1.MessageType != model.TypeScheduling {
		t.Errorf("m1 type = %s, want scheduling", m1.MessageType)
	}

	// The whole thread comes back, including the proposal from Me.
	results, err := e.FindScheduleWithPerson("Yahav", "this week", 10)
	if err != nil {
		t.Fatalf("find schedule: %v", err)
	}
	got := map[string]bool{}
	for _, r := range results {
		got[r.ID] = true
	}
	for _, id := range []string{"m1", "m2", "m3"} {
		if !got[id] {
			t.Errorf("thread message %s missing from results: %+v", id, results)
		}
	}
}

func TestSearchDirectionFilter(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	sent := event("m1", "Me", "I booked the restaurant table", testNow.Add(-time.Hour))
	sent.IsFromMe = true
	if err := e.Ingest(ctx, sent); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := e.Ingest(ctx, event("m2", "Danny", "which restaurant did you book", testNow.Add(-time.Hour))); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	results, err := e.Search(ctx, "restaurant", 10, "sent")
	if err != nil {
		t.Fatalf("search sent: %v", err)
	}
	for _, r := range results {
		if !r.IsFromMe {
			t.Errorf("received message %s leaked through sent filter", r.ID)
		}
	}
	if len(results) != 1 {
		t.Fatalf("want 1 sent result, got %d", len(results))
	}

	if _, err := e.Search(ctx, "restaurant", 10, "bogus"); err == nil {
		t.Error("invalid direction should be a validation error")
	}
}

func TestFindPersonConversationsMatchesMentions(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	// Danny mentions Yahav in a group chat; Yahav never sends a message.
	ev := event("m1", "Danny", "Yahav said he can host on Friday", testNow.Add(-time.Hour))
	ev.ChatName = "Weekend Crew"
	ev.IsGroupMessage = true
	if err := e.Ingest(ctx, ev); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	results, err := e.FindPersonConversations("Yahav", "", 10)
	if err != nil {
		t.Fatalf("find person: %v", err)
	}
	if len(results) != 1 || results[0].ID != "m1" {
		t.Fatalf("mention in group chat should match, got %+v", results)
	}
}

func TestMessagesByDate(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	if err := e.Ingest(ctx, event("m1", "Yahav", "from yesterday afternoon", testNow.Add(-24*time.Hour))); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := e.Ingest(ctx, event("m2", "Yahav", "from a week ago", testNow.Add(-8*24*time.Hour))); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	results, rng, err := e.MessagesByDate("yesterday", "", 10)
	if err != nil {
		t.Fatalf("messages by date: %v", err)
	}
	if rng == nil {
		t.Fatal("expected a resolved range")
	}
	if len(results) != 1 || results[0].ID != "m1" {
		t.Fatalf("expected only yesterday's message, got %+v", results)
	}

	if _, _, err := e.MessagesByDate("completely unrelated text", "", 10); err == nil {
		t.Error("unparseable period should be a validation error")
	}
}

func TestCheckPlansForDay(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	// Sent today, plan is for tomorrow: the resolved time entity is what
	// places it on tomorrow's calendar.
	if err := e.Ingest(ctx, event("m1", "Yahav", "let's meet tomorrow at 19:30", testNow.Add(-time.Hour))); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := e.Ingest(ctx, event("m2", "Danny", "want to meet next month sometime?", testNow.Add(-time.Hour))); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	results, err := e.CheckPlansForDay("tomorrow", 10)
	if err != nil {
		t.Fatalf("check plans: %v", err)
	}
	found := false
	for _, r := range results {
		if r.ID == "m1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("tomorrow's plan not returned: %+v", results)
	}
}

func TestValidationAndReadiness(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	var verr *ValidationError
	if _, err := e.Search(ctx, "   ", 10, ""); !errors.As(err, &verr) {
		t.Errorf("blank query: got %v, want ValidationError", err)
	}
	if err := e.Ingest(ctx, model.RawMessageEvent{Content: "x"}); !errors.As(err, &verr) {
		t.Errorf("missing id: got %v, want ValidationError", err)
	}

	var nerr *NotReadyError
	unready := New(nil, nil)
	if _, err := unready.Search(ctx, "anything", 10, ""); !errors.As(err, &nerr) {
		t.Errorf("unready engine: got %v, want NotReadyError", err)
	}
}

func TestEmptyResultsAreNotErrors(t *testing.T) {
	e, _, _ := newTestEngine(t)

	results, err := e.Search(context.Background(), "nothing indexed yet", 10, "")
	if err != nil {
		t.Fatalf("search over empty corpus: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result set, got %+v", results)
	}
}

func TestMergeResults(t *testing.T) {
	lexical := []model.Message{
		{ID: "a", Content: "lexical only", Timestamp: 300},
		{ID: "b", Content: "found by both", Timestamp: 100},
	}
	vecHits := []vector.SearchResult{
		{Score: 0.9, Meta: vector.Metadata{MessageID: "b"}},
		{Score: 0.5, Meta: vector.Metadata{MessageID: "c"}},
	}
	fetch := func(id string) (model.Message, error) {
		if id == "c" {
			return model.Message{ID: "c", Content: "vector only", Timestamp: 200}, nil
		}
		return model.Message{}, fmt.Errorf("missing row %s", id)
	}

	merged := mergeResults(lexical, vecHits, fetch, 10)
	if len(merged) != 3 {
		t.Fatalf("got %d results, want 3", len(merged))
	}

	// Scored results first by score, unscored lexical rows last.
	if merged[0].ID != "b" || merged[0].Source != model.SourceBoth || *merged[0].RelevanceScore != 0.9 {
		t.Errorf("first = %+v, want b/both/0.9", merged[0])
	}
	if merged[1].ID != "c" || merged[1].Source != model.SourceVector {
		t.Errorf("second = %+v, want c/vector", merged[1])
	}
	if merged[2].ID != "a" || merged[2].Source != model.SourceDatabase || merged[2].RelevanceScore != nil {
		t.Errorf("third = %+v, want a/database/unscored", merged[2])
	}

	// A vector hit whose row cannot be hydrated is dropped.
	dropped := mergeResults(nil, []vector.SearchResult{{Score: 0.8, Meta: vector.Metadata{MessageID: "gone"}}}, fetch, 10)
	if len(dropped) != 0 {
		t.Fatalf("unhydratable hit should be dropped, got %+v", dropped)
	}
}
