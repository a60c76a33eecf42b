package tools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/waindex/internal/model"
	"github.com/nextlevelbuilder/waindex/internal/search"
	"github.com/nextlevelbuilder/waindex/internal/store"
	"github.com/nextlevelbuilder/waindex/internal/vector"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T) *Registry {
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

	engine := search.New(st, ix)
	engine.SetClock(func() time.Time { return testNow })

	ctx := context.Background()
	seed := []model.RawMessageEvent{
		{
			ID: "m1", ChatID: "c1", ChatName: "Yahav", SenderName: "Yahav",
			Content:   "let's plan a barbecue tomorrow, here is the place https://maps.google.com/abc",
			Timestamp: testNow.Add(-2 * time.Hour).UnixMilli(),
		},
		{
			ID: "m2", ChatID: "c2", ChatName: "Danny", SenderName: "Danny",
			Content:   "quarterly numbers attached",
			Timestamp: testNow.Add(-26 * time.Hour).UnixMilli(),
		},
	}
	for _, ev := range seed {
		if err := engine.Ingest(ctx, ev); err != nil {
			t.Fatalf("seed ingest %s: %v", ev.ID, err)
		}
	}

	r := NewRegistry()
	RegisterAll(r, engine)
	return r
}

func TestRegisterAll(t *testing.T) {
	r := newTestRegistry(t)
	if r.Count() != 6 {
		t.Fatalf("registered %d tools, want 6", r.Count())
	}
	for _, name := range []string{
		"search_messages", "find_person_conversations", "get_messages_by_date",
		"get_urls_by_sender", "find_schedule_with_person", "check_plans_for_day",
	} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestSearchTool(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	res := r.Execute(ctx, "search_messages", "", map[string]interface{}{
		"query": "barbecue",
		"limit": float64(5), // JSON numbers decode as float64
	})
	if res.IsError {
		t.Fatalf("search errored: %s", res.Text)
	}
	if !strings.Contains(res.Text, "barbecue") || !strings.Contains(res.Text, "Yahav") {
		t.Errorf("unexpected search output:\n%s", res.Text)
	}

	// Nothing matched: a readable no-results line, not an error.
	res = r.Execute(ctx, "search_messages", "", map[string]interface{}{"query": "zeppelin maintenance"})
	if res.IsError {
		t.Fatalf("empty result became an error: %s", res.Text)
	}
	if !strings.Contains(res.Text, "No messages found") {
		t.Errorf("want no-results message, got %q", res.Text)
	}

	// Invalid input is an error, distinguishable from no-results.
	res = r.Execute(ctx, "search_messages", "", map[string]interface{}{"query": "  "})
	if !res.IsError {
		t.Error("blank query should be an error result")
	}
}

func TestFindPersonTool(t *testing.T) {
	r := newTestRegistry(t)

	res := r.Execute(context.Background(), "find_person_conversations", "", map[string]interface{}{
		"person_name": "Yahav",
	})
	if res.IsError {
		t.Fatalf("find person errored: %s", res.Text)
	}
	if !strings.Contains(res.Text, "Yahav") {
		t.Errorf("expected Yahav in output:\n%s", res.Text)
	}
}

func TestMessagesByDateTool(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	res := r.Execute(ctx, "get_messages_by_date", "", map[string]interface{}{
		"date_query": "yesterday",
	})
	if res.IsError {
		t.Fatalf("date lookup errored: %s", res.Text)
	}
	if !strings.Contains(res.Text, "quarterly numbers") {
		t.Errorf("yesterday's message missing:\n%s", res.Text)
	}

	res = r.Execute(ctx, "get_messages_by_date", "", map[string]interface{}{
		"date_query": "completely unrelated text",
	})
	if !res.IsError {
		t.Error("unparseable date should be an error result")
	}
}

func TestURLsBySenderTool(t *testing.T) {
	r := newTestRegistry(t)

	res := r.Execute(context.Background(), "get_urls_by_sender", "", map[string]interface{}{
		"sender_name": "Yahav",
	})
	if res.IsError {
		t.Fatalf("url lookup errored: %s", res.Text)
	}
	if !strings.Contains(res.Text, "maps.google.com") {
		t.Errorf("shared link missing:\n%s", res.Text)
	}
	if !strings.Contains(res.Text, "location") {
		t.Errorf("purpose classification missing:\n%s", res.Text)
	}
}

func TestScheduleAndPlansTools(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	res := r.Execute(ctx, "find_schedule_with_person", "", map[string]interface{}{
		"person_name": "Yahav",
		"time_period": "this week",
	})
	if res.IsError {
		t.Fatalf("schedule search errored: %s", res.Text)
	}
	if !strings.Contains(res.Text, "barbecue") {
		t.Errorf("planning thread missing:\n%s", res.Text)
	}

	res = r.Execute(ctx, "check_plans_for_day", "", map[string]interface{}{"day": "tomorrow"})
	if res.IsError {
		t.Fatalf("plans lookup errored: %s", res.Text)
	}
	if !strings.Contains(res.Text, "barbecue") {
		t.Errorf("tomorrow's plan missing:\n%s", res.Text)
	}
}

func TestUnknownTool(t *testing.T) {
	r := newTestRegistry(t)
	res := r.Execute(context.Background(), "no_such_tool", "", nil)
	if !res.IsError {
		t.Error("unknown tool should error")
	}
}

func TestRateLimiter(t *testing.T) {
	r := newTestRegistry(t)
	r.SetRateLimiter(NewRateLimiter(2))
	ctx := context.Background()
	args := map[string]interface{}{"query": "barbecue"}

	for i := 0; i < 2; i++ {
		if res := r.Execute(ctx, "search_messages", "caller-1", args); res.IsError {
			t.Fatalf("call %d rate limited early: %s", i, res.Text)
		}
	}
	if res := r.Execute(ctx, "search_messages", "caller-1", args); !res.IsError {
		t.Error("third call should hit the rate limit")
	}
	// Other callers are unaffected.
	if res := r.Execute(ctx, "search_messages", "caller-2", args); res.IsError {
		t.Errorf("separate caller rate limited: %s", res.Text)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := &RateLimiter{
		windows:  make(map[string][]time.Time),
		maxPerHr: 5,
		window:   time.Millisecond,
	}
	if err := rl.Allow("stale-caller"); err != nil {
		t.Fatalf("allow: %v", err)
	}
	if err := rl.Allow("fresh-caller"); err != nil {
		t.Fatalf("allow: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	rl.windows["fresh-caller"] = []time.Time{time.Now()}
	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.windows["stale-caller"]; ok {
		t.Error("stale caller key survived cleanup")
	}
	if _, ok := rl.windows["fresh-caller"]; !ok {
		t.Error("fresh caller key dropped by cleanup")
	}
}
