package search

import (
	"sort"

	"github.com/nextlevelbuilder/waindex/internal/model"
	"github.com/nextlevelbuilder/waindex/internal/vector"
)

// mergeResults combines lexical rows with vector neighbors into one
// deduplicated ranked list. For messages found by both sides, the vector
// similarity supplies the score and the lexical row supplies the display
// fields. Vector-only hits are hydrated through fetch; hits whose row is
// gone or deleted are dropped. Ordering is score descending with unscored
// lexical rows last, ties broken by timestamp descending.
func mergeResults(lexical []model.Message, vecHits []vector.SearchResult, fetch func(id string) (model.Message, error), limit int) []model.Result {
	byID := make(map[string]int, len(lexical))
	merged := make([]model.Result, 0, len(lexical)+len(vecHits))

	for _, msg := range lexical {
		byID[msg.ID] = len(merged)
		merged = append(merged, toResult(msg, nil, model.SourceDatabase))
	}

	for _, hit := range vecHits {
		score := hit.Score
		if i, ok := byID[hit.Meta.MessageID]; ok {
			if merged[i].RelevanceScore == nil || *merged[i].RelevanceScore < score {
				merged[i].RelevanceScore = &score
			}
			merged[i].Source = model.SourceBoth
			continue
		}
		if fetch == nil {
			continue
		}
		msg, err := fetch(hit.Meta.MessageID)
		if err != nil || msg.Deleted {
			continue
		}
		byID[msg.ID] = len(merged)
		merged = append(merged, toResult(msg, &score, model.SourceVector))
	}

	sort.SliceStable(merged, func(i, j int) bool {
		si, sj := scoreOf(merged[i]), scoreOf(merged[j])
		if si != sj {
			return si > sj
		}
		return merged[i].Timestamp > merged[j].Timestamp
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func scoreOf(r model.Result) float64 {
	if r.RelevanceScore == nil {
		return 0
	}
	return *r.RelevanceScore
}

func toResult(msg model.Message, score *float64, source model.ResultSource) model.Result {
	return model.Result{
		ID:             msg.ID,
		ChatName:       msg.ChatName,
		IsGroupMessage: msg.IsGroupMessage,
		SenderName:     msg.SenderName,
		IsFromMe:       msg.IsFromMe,
		Timestamp:      msg.Timestamp,
		Content:        msg.Content,
		URLs:           msg.URLs,
		RelevanceScore: score,
		Source:         source,
	}
}
