package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/waindex/internal/model"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func TestDetectLanguages(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"hello there", []string{"english"}},
		{"שלום לכולם", []string{"hebrew"}},
		{"נפגש בשעה five", []string{"mixed", "hebrew", "english"}},
		{"123 !!!", []string{"unknown"}},
		{"", []string{"unknown"}},
	}

	for _, tt := range tests {
		got := DetectLanguages(tt.text)
		if len(got) != len(tt.want) {
			t.Errorf("DetectLanguages(%q) = %v, want %v", tt.text, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("DetectLanguages(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
			}
		}
	}
}

func TestDetectLanguages_MixedOrdering(t *testing.T) {
	// Mixed text must always list "mixed" then "hebrew" first, regardless
	// of which script appears first in the text.
	for _, text := range []string{"abc שלום", "שלום abc"} {
		got := DetectLanguages(text)
		if len(got) < 2 || got[0] != "mixed" || got[1] != "hebrew" {
			t.Errorf("DetectLanguages(%q) = %v, want [mixed hebrew english]", text, got)
		}
	}
}

func TestExtractURLs_ContextRoundTrip(t *testing.T) {
	prefix := "check this place out "
	suffix := " looks amazing right"
	url := "https://example.com/menu"

	urls := ExtractURLs(prefix + url + suffix)
	if len(urls) != 1 {
		t.Fatalf("got %d urls, want 1", len(urls))
	}
	if urls[0].URL != url {
		t.Errorf("url = %q, want %q", urls[0].URL, url)
	}
	if urls[0].ContextBefore != prefix {
		t.Errorf("contextBefore = %q, want %q", urls[0].ContextBefore, prefix)
	}
	if urls[0].ContextAfter != suffix {
		t.Errorf("contextAfter = %q, want %q", urls[0].ContextAfter, suffix)
	}
	if urls[0].Domain != "example.com" {
		t.Errorf("domain = %q, want example.com", urls[0].Domain)
	}
}

func TestExtractURLs_HebrewContextWindow(t *testing.T) {
	prefix := "תראה את זה "
	text := prefix + "https://youtu.be/abc123"

	urls := ExtractURLs(text)
	if len(urls) != 1 {
		t.Fatalf("got %d urls, want 1", len(urls))
	}
	if urls[0].ContextBefore != prefix {
		t.Errorf("contextBefore = %q, want %q", urls[0].ContextBefore, prefix)
	}
	if urls[0].Purpose != model.PurposeMedia {
		t.Errorf("purpose = %q, want media", urls[0].Purpose)
	}
	if urls[0].Position != len([]rune(prefix)) {
		t.Errorf("position = %d, want %d", urls[0].Position, len([]rune(prefix)))
	}
}

func TestExtractURLs_WindowBounded(t *testing.T) {
	long := strings.Repeat("a", 120)
	urls := ExtractURLs(long + " https://example.com " + long)
	if len(urls) != 1 {
		t.Fatalf("got %d urls, want 1", len(urls))
	}
	if n := len([]rune(urls[0].ContextBefore)); n != contextWindow {
		t.Errorf("contextBefore length = %d, want %d", n, contextWindow)
	}
	if n := len([]rune(urls[0].ContextAfter)); n != contextWindow {
		t.Errorf("contextAfter length = %d, want %d", n, contextWindow)
	}
}

func TestExtractURLs_TrailingPunctuation(t *testing.T) {
	urls := ExtractURLs("see https://example.com/page.")
	if len(urls) != 1 {
		t.Fatalf("got %d urls, want 1", len(urls))
	}
	if urls[0].URL != "https://example.com/page" {
		t.Errorf("url = %q, trailing dot should be stripped", urls[0].URL)
	}
	if urls[0].ContextAfter != "." {
		t.Errorf("contextAfter = %q, want %q", urls[0].ContextAfter, ".")
	}
}

func TestExtractURLs_PurposeFromDomain(t *testing.T) {
	tests := []struct {
		url  string
		want model.URLPurpose
	}{
		{"https://maps.google.com/xyz", model.PurposeLocation},
		{"https://www.instagram.com/p/abc", model.PurposeSocial},
		{"https://ontopo.com/he/some-place", model.PurposeRestaurant},
		{"https://random-site.org/page", model.PurposeGeneral},
	}
	for _, tt := range tests {
		urls := ExtractURLs(tt.url)
		if len(urls) != 1 {
			t.Fatalf("ExtractURLs(%q) returned %d urls", tt.url, len(urls))
		}
		if urls[0].Purpose != tt.want {
			t.Errorf("purpose(%q) = %q, want %q", tt.url, urls[0].Purpose, tt.want)
		}
	}
}

func TestExtractURLs_PurposeFromContext(t *testing.T) {
	urls := ExtractURLs("the menu for dinner is at https://some-place.co.il/m")
	if len(urls) != 1 {
		t.Fatalf("got %d urls, want 1", len(urls))
	}
	if urls[0].Purpose != model.PurposeRestaurant {
		t.Errorf("purpose = %q, want restaurant", urls[0].Purpose)
	}
}

func TestExtractEntities_People(t *testing.T) {
	e := New()
	ents := e.ExtractEntities("אמרתי ליהב שנדבר מחר", testNow)

	if !hasEntity(ents, model.EntityTime, "מחר") {
		t.Errorf("missing time entity מחר in %v", ents)
	}
}

func TestExtractEntities_CapitalizedName(t *testing.T) {
	e := New()
	ents := e.ExtractEntities("talked to Danny about it", testNow)
	if !hasEntity(ents, model.EntityPerson, "Danny") {
		t.Errorf("missing person Danny in %v", ents)
	}
}

func TestExtractEntities_PlaceSequence(t *testing.T) {
	e := New()
	ents := e.ExtractEntities("meet me at Cafe Noir tomorrow", testNow)
	if !hasEntity(ents, model.EntityPlace, "Cafe Noir") {
		t.Errorf("missing place Cafe Noir in %v", ents)
	}
	if !hasEntity(ents, model.EntityTime, "tomorrow") {
		t.Errorf("missing time tomorrow in %v", ents)
	}
}

func TestExtractEntities_HebrewLocativePrefix(t *testing.T) {
	e := New()
	ents := e.ExtractEntities("נפגש במסעדה בשמונה", testNow)
	if !hasEntity(ents, model.EntityPlace, "מסעדה") {
		t.Errorf("locative prefix not stripped: %v", ents)
	}
}

func TestExtractEntities_ClockPattern(t *testing.T) {
	e := New()
	ents := e.ExtractEntities("נתראה ב 19:30 בסדר?", testNow)
	if !hasEntity(ents, model.EntityTime, "19:30") {
		t.Errorf("missing clock time 19:30 in %v", ents)
	}
}

func TestExtractEntities_Deduplicated(t *testing.T) {
	e := New()
	ents := e.ExtractEntities("פגישה פגישה פגישה", testNow)
	count := 0
	for _, ent := range ents {
		if ent.Type == model.EntityActivity && ent.Value == "פגישה" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("activity פגישה appears %d times, want 1", count)
	}
}

func TestExtractEntities_EmptyInput(t *testing.T) {
	e := New()
	if ents := e.ExtractEntities("", testNow); ents != nil {
		t.Errorf("ExtractEntities(\"\") = %v, want nil", ents)
	}
	if ents := e.ExtractEntities("   ", testNow); ents != nil {
		t.Errorf("ExtractEntities(blank) = %v, want nil", ents)
	}
}

func TestDetectScheduling_HebrewBBQ(t *testing.T) {
	e := New()
	info := e.DetectScheduling("יש על האש מחר?", testNow)
	if info == nil || !info.IsScheduling {
		t.Fatal("expected scheduling intent for יש על האש מחר?")
	}
	if len(info.TimeReferences) == 0 {
		t.Error("expected time references")
	}
	if len(info.Activities) == 0 {
		t.Error("expected meal activity from על האש")
	}
}

func TestDetectScheduling_QuestionPlusTime(t *testing.T) {
	e := New()
	// No scheduling keyword, but a question with a time reference.
	info := e.DetectScheduling("are you around tomorrow?", testNow)
	if info == nil || !info.IsScheduling {
		t.Fatal("expected scheduling intent for question + time reference")
	}
}

func TestDetectScheduling_QuestionWithoutTime(t *testing.T) {
	e := New()
	if info := e.DetectScheduling("do you like pizza?", testNow); info != nil {
		t.Errorf("question without time reference should not schedule, got %+v", info)
	}
}

func TestDetectScheduling_Urgency(t *testing.T) {
	e := New()
	info := e.DetectScheduling("חייבים לקבוע דחוף להיום", testNow)
	if info == nil || !info.IsScheduling {
		t.Fatal("expected scheduling intent")
	}
	if !info.Urgent {
		t.Error("expected urgent flag")
	}
}

func TestClassifyMessageType_Order(t *testing.T) {
	e := New()
	tests := []struct {
		text      string
		mediaType string
		want      model.MessageType
	}{
		{"whatever", "image", model.TypeImage},
		{"", "location", model.TypeLocation},
		// Scheduling beats link: a scheduling message with a URL stays scheduling.
		{"נפגש מחר במסעדה https://ontopo.com/x", "", model.TypeScheduling},
		{"check https://example.com", "", model.TypeLink},
		{"סבבה", "", model.TypeConfirmation},
		{"do you like pizza?", "", model.TypeQuestion},
		{"sounds like a normal sentence", "", model.TypeText},
	}

	for _, tt := range tests {
		got := e.ExtractAt(tt.text, tt.mediaType, testNow).MessageType
		if got != tt.want {
			t.Errorf("classify(%q, %q) = %q, want %q", tt.text, tt.mediaType, got, tt.want)
		}
	}
}

func TestExtract_NeverPanicsOnGarbage(t *testing.T) {
	e := New()
	inputs := []string{"", "\x00\xff\xfe", strings.Repeat("?", 500), "https://", "wwww", "ב"}
	for _, input := range inputs {
		ex := e.ExtractAt(input, "", testNow)
		if len(ex.Languages) == 0 {
			t.Errorf("Extract(%q) returned empty languages", input)
		}
	}
}

func hasEntity(ents []model.Entity, typ model.EntityType, value string) bool {
	for _, ent := range ents {
		if ent.Type == typ && ent.Value == value {
			return true
		}
	}
	return false
}
