// Package extract turns raw message text into structured features: URLs
// with context, entity mentions, scheduling intent, detected languages,
// and a derived message type. Everything here is pure computation with
// no I/O, and it never fails on malformed input.
package extract

import (
	"strings"
	"time"

	"github.com/nextlevelbuilder/waindex/internal/model"
)

// Extraction bundles every feature derived from one message.
type Extraction struct {
	URLs        []model.ExtractedURL
	Entities    []model.Entity
	Scheduling  *model.SchedulingInfo
	Languages   []string
	MessageType model.MessageType
}

// Extract runs the full feature pipeline over rawText. mediaType comes
// from transport metadata ("" for plain text) and, when set, wins the
// type classification outright.
func (e *Extractor) Extract(rawText, mediaType string) Extraction {
	return e.ExtractAt(rawText, mediaType, time.Now())
}

// ExtractAt is Extract with an explicit reference time for relative
// date resolution.
func (e *Extractor) ExtractAt(rawText, mediaType string, now time.Time) Extraction {
	urls := ExtractURLs(rawText)
	entities := e.ExtractEntities(rawText, now)
	scheduling := e.schedulingFromEntities(rawText, entities)

	return Extraction{
		URLs:        urls,
		Entities:    entities,
		Scheduling:  scheduling,
		Languages:   DetectLanguages(rawText),
		MessageType: classifyMessageType(rawText, mediaType, urls, entities, scheduling),
	}
}

// classifyMessageType is an ordered decision list. Transport media
// metadata outranks everything; scheduling outranks link detection so a
// scheduling message containing a link stays actionable as scheduling.
func classifyMessageType(text, mediaType string, urls []model.ExtractedURL, entities []model.Entity, scheduling *model.SchedulingInfo) model.MessageType {
	switch mediaType {
	case "image":
		return model.TypeImage
	case "video":
		return model.TypeVideo
	case "audio":
		return model.TypeAudio
	case "document":
		return model.TypeDocument
	case "location":
		return model.TypeLocation
	case "contact":
		return model.TypeContact
	case "media":
		return model.TypeMedia
	}

	if scheduling != nil && scheduling.IsScheduling {
		return model.TypeScheduling
	}
	if len(urls) > 0 {
		return model.TypeLink
	}
	for _, ent := range entities {
		if ent.Type == model.EntityConfirmation {
			return model.TypeConfirmation
		}
	}
	if isQuestion(text) {
		return model.TypeQuestion
	}
	return model.TypeText
}

func isQuestion(text string) bool {
	if len(text) == 0 {
		return false
	}
	if text[len(text)-1] == '?' {
		return true
	}
	lower := strings.ToLower(text)
	for _, pat := range availabilityPatterns {
		if containsAnyCase(text, lower, pat) {
			return true
		}
	}
	return false
}
