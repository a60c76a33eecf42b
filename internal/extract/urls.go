package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nextlevelbuilder/waindex/internal/model"
)

// contextWindow is the number of runes captured on each side of a URL.
const contextWindow = 50

var urlRe = regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s<>"']+`)

// ExtractURLs finds URL-like substrings and captures a bounded context
// window around each. Purpose is classified from the domain allow-list
// first, then from keywords in the context window.
func ExtractURLs(text string) []model.ExtractedURL {
	matches := urlRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	urls := make([]model.ExtractedURL, 0, len(matches))
	for _, m := range matches {
		start, end := m[0], m[1]

		// Trailing sentence punctuation belongs to the text, not the URL.
		raw := text[start:end]
		trimmed := strings.TrimRight(raw, ".,;:!?)]}")
		end = start + len(trimmed)
		if trimmed == "" {
			continue
		}

		before := lastRunes(text[:start], contextWindow)
		after := firstRunes(text[end:], contextWindow)
		domain := extractDomain(trimmed)

		urls = append(urls, model.ExtractedURL{
			URL:           trimmed,
			Domain:        domain,
			Purpose:       classifyURLPurpose(domain, before+" "+after),
			ContextBefore: before,
			ContextAfter:  after,
			Position:      utf8.RuneCountInString(text[:start]),
		})
	}
	return urls
}

func extractDomain(url string) string {
	d := strings.ToLower(url)
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return d
}

func classifyURLPurpose(domain, context string) model.URLPurpose {
	for known, purpose := range urlDomainPurposes {
		if domain == known || strings.HasSuffix(domain, "."+known) {
			return model.URLPurpose(purpose)
		}
	}

	lower := strings.ToLower(context)
	for _, entry := range urlKeywordPurposes {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return model.URLPurpose(entry.purpose)
			}
		}
	}
	return model.PurposeGeneral
}

// lastRunes returns the final n runes of s.
func lastRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[len(r)-n:])
}

// firstRunes returns the initial n runes of s.
func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
