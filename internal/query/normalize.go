// Package query parses free-text (and mixed Hebrew/English) queries into
// structured filter intent: sender, date range, URL/scheduling flags,
// detected languages, and seed entities for entity-filtered vector search.
// Normalization is idempotent and side-effect-free.
package query

import (
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/nextlevelbuilder/waindex/internal/extract"
	"github.com/nextlevelbuilder/waindex/internal/model"
)

// DateRange is a half-open [Start, End) window in epoch milliseconds.
type DateRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Contains reports whether ts falls inside the range.
func (r DateRange) Contains(ts int64) bool {
	return ts >= r.Start && ts < r.End
}

// Normalized is the structured form of a raw query string.
type Normalized struct {
	CleanQuery       string
	SenderFilter     string
	DateRange        *DateRange
	URLFilter        bool
	SchedulingFilter bool
	Entities         []model.Entity
	Languages        []string
}

// hebrewDatePhrases maps Hebrew relative-date expressions to the canonical
// English phrase the date parser understands. Longer phrases first so
// "בשבוע הבא" wins over a bare "שבוע".
var hebrewDatePhrases = []struct{ heb, eng string }{
	{"לפני יומיים", "2 days ago"},
	{"בשבוע שעבר", "last week"},
	{"בשבוע הבא", "next week"},
	{"בסוף השבוע", "this weekend"},
	{"מחרתיים", "in 2 days"},
	{"שלשום", "2 days ago"},
	{"אתמול", "yesterday"},
	{"מחר", "tomorrow"},
	{"היום", "today"},
}

// termExpansions appends English synonyms for recognized Hebrew domain
// terms, improving lexical and vector recall without destroying the
// original query terms. Append-only and idempotent.
var termExpansions = []struct {
	term     string
	synonyms []string
}{
	{"פגישות", []string{"meetings"}},
	{"פגישה", []string{"meeting"}},
	{"להיפגש", []string{"meet"}},
	{"נפגש", []string{"meet"}},
	{"לקבוע", []string{"schedule"}},
	{"תוכניות", []string{"plans"}},
	{"על האש", []string{"bbq", "barbecue"}},
	{"מסעדה", []string{"restaurant"}},
	{"סרט", []string{"movie"}},
	{"קישורים", []string{"links"}},
	{"קישור", []string{"link"}},
}

var urlVocab = []string{"link", "links", "url", "urls", "קישור", "קישורים", "לינק", "לינקים"}

var senderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bfrom\s+([\p{L}][\p{L}'-]*)`),
	regexp.MustCompile(`(?i)\bby\s+([\p{L}][\p{L}'-]*)`),
	regexp.MustCompile(`מאת\s+([\p{L}'-]+)`),
	regexp.MustCompile(`של\s+([\p{L}'-]+)`),
	regexp.MustCompile(`עם\s+([\p{L}'-]+)`),
}

// Normalizer turns raw query strings into Normalized filter intent.
type Normalizer struct {
	extractor *extract.Extractor
	dates     *when.Parser
}

// New builds a Normalizer sharing the given feature extractor.
func New(extractor *extract.Extractor) *Normalizer {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Normalizer{extractor: extractor, dates: w}
}

// Normalize parses rawQuery at the current time.
func (n *Normalizer) Normalize(rawQuery string) Normalized {
	return n.NormalizeAt(rawQuery, time.Now())
}

// NormalizeAt parses rawQuery with an explicit reference time. It never
// fails; unparseable input degrades to a pass-through clean query.
func (n *Normalizer) NormalizeAt(rawQuery string, now time.Time) Normalized {
	q := strings.TrimSpace(rawQuery)

	out := Normalized{Languages: extract.DetectLanguages(q)}

	// Canonicalize Hebrew date phrases before handing off to the parser.
	for _, p := range hebrewDatePhrases {
		q = strings.ReplaceAll(q, p.heb, p.eng)
	}

	// First date-parser match yields the day range; the matched phrase is
	// stripped from the query text.
	if r, err := n.dates.Parse(q, now); err == nil && r != nil {
		out.DateRange = dayRange(r.Time)
		q = strings.TrimSpace(q[:r.Index] + q[r.Index+len(r.Text):])
	}

	out.SenderFilter = extractSender(q)
	out.URLFilter = containsAnyWord(q, urlVocab)

	if info := n.extractor.DetectScheduling(q, now); info != nil && info.IsScheduling {
		out.SchedulingFilter = true
	}

	q = expandTerms(q)
	q = strings.Join(strings.Fields(q), " ")

	out.CleanQuery = q
	out.Entities = n.extractor.ExtractEntities(q, now)
	return out
}

// ParsePeriod resolves a named time period ("today", "this week", Hebrew
// equivalents) or any single-day phrase into a date range. Returns nil
// when nothing in s parses as a date.
func (n *Normalizer) ParsePeriod(s string, now time.Time) *DateRange {
	q := strings.TrimSpace(s)
	for _, p := range hebrewDatePhrases {
		q = strings.ReplaceAll(q, p.heb, p.eng)
	}
	lower := strings.ToLower(q)

	switch {
	case strings.Contains(lower, "this week") || strings.Contains(q, "השבוע"):
		return weekRange(now, 0)
	case strings.Contains(lower, "next week"):
		return weekRange(now, 1)
	case strings.Contains(lower, "last week"):
		return weekRange(now, -1)
	case strings.Contains(lower, "this weekend"):
		return weekendRange(now)
	case strings.Contains(lower, "this month") || strings.Contains(q, "החודש"):
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return &DateRange{Start: start.UnixMilli(), End: start.AddDate(0, 1, 0).UnixMilli()}
	}

	if r, err := n.dates.Parse(q, now); err == nil && r != nil {
		return dayRange(r.Time)
	}
	return nil
}

func dayRange(t time.Time) *DateRange {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return &DateRange{Start: start.UnixMilli(), End: start.AddDate(0, 0, 1).UnixMilli()}
}

// weekRange returns the week containing now shifted by offset weeks.
// Weeks start on Sunday.
func weekRange(now time.Time, offset int) *DateRange {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := day.AddDate(0, 0, -int(day.Weekday())+7*offset)
	return &DateRange{Start: start.UnixMilli(), End: start.AddDate(0, 0, 7).UnixMilli()}
}

func weekendRange(now time.Time) *DateRange {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	// Upcoming Friday through end of Saturday.
	daysUntilFriday := (int(time.Friday) - int(day.Weekday()) + 7) % 7
	start := day.AddDate(0, 0, daysUntilFriday)
	return &DateRange{Start: start.UnixMilli(), End: start.AddDate(0, 0, 2).UnixMilli()}
}

// senderBlocklist filters preposition captures that are clearly not names.
var senderBlocklist = map[string]bool{
	"about": true, "the": true, "a": true, "me": true, "my": true,
	"yesterday": true, "today": true, "tomorrow": true, "last": true,
	"next": true, "this": true,
}

func extractSender(q string) string {
	for _, re := range senderPatterns {
		for _, m := range re.FindAllStringSubmatch(q, -1) {
			if !senderBlocklist[strings.ToLower(m[1])] {
				return m[1]
			}
		}
	}
	return ""
}

func containsAnyWord(q string, vocab []string) bool {
	lower := strings.ToLower(q)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '?' || r == '!'
	})
	for _, f := range fields {
		for _, v := range vocab {
			if f == v {
				return true
			}
		}
	}
	return false
}

// expandTerms appends English synonyms for Hebrew domain terms. A synonym
// already present as a token is never appended again, which keeps the
// whole normalization idempotent.
func expandTerms(q string) string {
	tokens := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(q)) {
		tokens[strings.Trim(f, "?,.!")] = true
	}

	var appended []string
	for _, exp := range termExpansions {
		if !strings.Contains(q, exp.term) {
			continue
		}
		for _, syn := range exp.synonyms {
			if !tokens[syn] {
				appended = append(appended, syn)
				tokens[syn] = true
			}
		}
	}

	if len(appended) == 0 {
		return q
	}
	return q + " " + strings.Join(appended, " ")
}
