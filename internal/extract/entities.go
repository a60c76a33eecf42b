package extract

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/nextlevelbuilder/waindex/internal/model"
)

// clockRe matches explicit HH:MM clock times with an optional meridiem.
var clockRe = regexp.MustCompile(`\b(?:[01]?\d|2[0-3]):[0-5]\d(?:\s?(?:[AaPp][Mm]))?\b`)

// Extractor holds the shared natural-language date parser. Safe for
// concurrent use; all extraction methods are pure functions of their input.
type Extractor struct {
	dates *when.Parser
}

// New builds an Extractor with English date rules loaded.
func New() *Extractor {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Extractor{dates: w}
}

// ExtractEntities pulls person/place/activity/time/confirmation mentions
// out of text. All extractors are lookup/heuristic; duplicates are removed
// by (type, value) set semantics. Never fails; worst case returns nil.
func (e *Extractor) ExtractEntities(text string, now time.Time) []model.Entity {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []model.Entity
	add := func(ent model.Entity) {
		key := string(ent.Type) + "\x00" + strings.ToLower(ent.Value)
		if ent.Value == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, ent)
	}

	tokens := tokenize(text)
	lower := strings.ToLower(text)

	extractPeople(text, tokens, lower, add)
	extractPlaces(tokens, lower, add)
	extractActivities(lower, add)
	e.extractTimeRefs(text, lower, now, add)
	extractConfirmations(tokens, lower, add)

	return out
}

func extractPeople(text string, tokens []string, lower string, add func(model.Entity)) {
	for _, name := range curatedNames {
		if containsToken(tokens, name) {
			add(model.Entity{Type: model.EntityPerson, Value: name})
		}
	}

	// Latin-script heuristic: a lone capitalized word that is not a
	// stopword is likely a name. Runs of 2+ capitalized words are treated
	// as place names by extractPlaces, not people.
	caps := capitalizedRuns(tokens)
	for _, run := range caps {
		if len(run) == 1 && !latinStopwords[run[0]] {
			add(model.Entity{Type: model.EntityPerson, Value: run[0]})
		}
	}

	for _, term := range relationshipTerms {
		if matchTerm(tokens, lower, term) {
			add(model.Entity{Type: model.EntityPerson, Value: term})
		}
	}
}

func extractPlaces(tokens []string, lower string, add func(model.Entity)) {
	for _, venue := range venueTypes {
		if matchTerm(tokens, lower, venue) {
			add(model.Entity{Type: model.EntityPlace, Value: venue})
		}
	}

	// Hebrew locative prefixes attach to the place word: "במסעדה" = "at
	// the restaurant". Strip the prefix and check the remainder against
	// the venue vocabulary.
	for _, tok := range tokens {
		runes := []rune(tok)
		if len(runes) < 3 || !containsHebrew(tok) {
			continue
		}
		for _, prefix := range hebrewLocativePrefixes {
			if runes[0] != prefix {
				continue
			}
			rest := string(runes[1:])
			for _, venue := range venueTypes {
				if rest == venue {
					add(model.Entity{Type: model.EntityPlace, Value: venue})
				}
			}
		}
	}

	// Multi-word capitalized sequences read as proper place names
	// ("Cafe Noir", "Dizengoff Center").
	for _, run := range capitalizedRuns(tokens) {
		if len(run) >= 2 {
			add(model.Entity{Type: model.EntityPlace, Value: strings.Join(run, " ")})
		}
	}
}

func extractActivities(lower string, add func(model.Entity)) {
	for _, terms := range activityVocab {
		for _, term := range terms {
			if strings.Contains(lower, term) {
				add(model.Entity{Type: model.EntityActivity, Value: term})
			}
		}
	}
}

func (e *Extractor) extractTimeRefs(text, lower string, now time.Time, add func(model.Entity)) {
	if r, err := e.dates.Parse(text, now); err == nil && r != nil {
		add(model.Entity{
			Type:       model.EntityTime,
			Value:      r.Text,
			ParsedTime: r.Time.UnixMilli(),
		})
	}

	for _, word := range hebrewTimeWords {
		if strings.Contains(text, word) {
			add(model.Entity{Type: model.EntityTime, Value: word})
		}
	}
	for _, word := range englishTimeWords {
		if strings.Contains(lower, word) {
			add(model.Entity{Type: model.EntityTime, Value: word})
		}
	}

	for _, clock := range clockRe.FindAllString(text, -1) {
		add(model.Entity{Type: model.EntityTime, Value: clock})
	}
}

func extractConfirmations(tokens []string, lower string, add func(model.Entity)) {
	for _, word := range confirmationWords {
		if matchTerm(tokens, lower, word) {
			add(model.Entity{Type: model.EntityConfirmation, Value: word})
		}
	}
}

// tokenize splits text on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// containsToken does a case-insensitive exact token match.
func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

// matchTerm matches single-word terms against tokens and multi-word terms
// as substrings so Hebrew phrases like "על האש" are found intact.
func matchTerm(tokens []string, lower, term string) bool {
	if strings.ContainsRune(term, ' ') {
		if containsHebrew(term) {
			return strings.Contains(lower, term)
		}
		return strings.Contains(lower, strings.ToLower(term))
	}
	return containsToken(tokens, term)
}

// capitalizedRuns groups consecutive Latin-script tokens that start with
// an uppercase letter.
func capitalizedRuns(tokens []string) [][]string {
	var runs [][]string
	var current []string
	flush := func() {
		if len(current) > 0 {
			runs = append(runs, current)
			current = nil
		}
	}
	for _, tok := range tokens {
		r := []rune(tok)
		if len(r) >= 2 && unicode.IsUpper(r[0]) && unicode.IsLower(r[1]) {
			current = append(current, tok)
			continue
		}
		flush()
	}
	flush()
	return runs
}
