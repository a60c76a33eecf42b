package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/nextlevelbuilder/waindex/internal/model"
)

const timeLayout = "2006-01-02 15:04"

// formatResults renders ranked message results for a language-model
// consumer: one numbered block per message, newest information first as
// produced by the ranking.
func formatResults(results []model.Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, time.UnixMilli(r.Timestamp).UTC().Format(timeLayout), r.SenderName)
		if r.ChatName != "" && r.ChatName != r.SenderName {
			fmt.Fprintf(&b, " in %q", r.ChatName)
			if r.IsGroupMessage {
				b.WriteString(" (group)")
			}
		}
		b.WriteString(":\n")
		fmt.Fprintf(&b, "   %s\n", strings.TrimSpace(r.Content))
		if r.RelevanceScore != nil {
			fmt.Fprintf(&b, "   relevance %.2f, source %s\n", *r.RelevanceScore, r.Source)
		}
		for _, u := range r.URLs {
			fmt.Fprintf(&b, "   link: %s (%s)\n", u.URL, u.Purpose)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatURLs(urls []model.URLResult) string {
	var b strings.Builder
	for i, u := range urls {
		fmt.Fprintf(&b, "%d. %s (%s, %s)\n", i+1, u.URL, u.Domain, u.Purpose)
		fmt.Fprintf(&b, "   shared by %s in %q on %s\n", u.SenderName, u.ChatName, time.UnixMilli(u.Timestamp).UTC().Format(timeLayout))
		if u.Context != "" {
			fmt.Fprintf(&b, "   context: %s\n", u.Context)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func noResults(what string) *Result {
	return NewResult("No messages found for " + what + ".")
}
