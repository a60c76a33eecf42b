package extract

import (
	"strings"
	"time"

	"github.com/nextlevelbuilder/waindex/internal/model"
)

// DetectScheduling decides whether text carries scheduling intent and, when
// it does, assembles the full SchedulingInfo bundle from the entity
// extractors. Intent fires on a scheduling keyword, or on a question
// marker / availability pattern combined with at least one time reference.
func (e *Extractor) DetectScheduling(text string, now time.Time) *model.SchedulingInfo {
	entities := e.ExtractEntities(text, now)
	return e.schedulingFromEntities(text, entities)
}

func (e *Extractor) schedulingFromEntities(text string, entities []model.Entity) *model.SchedulingInfo {
	lower := strings.ToLower(text)

	hasKeyword := false
	for _, kw := range schedulingKeywords {
		if containsAnyCase(text, lower, kw) {
			hasKeyword = true
			break
		}
	}

	hasTimeRef := false
	for _, ent := range entities {
		if ent.Type == model.EntityTime {
			hasTimeRef = true
			break
		}
	}

	questionLike := strings.Contains(text, "?")
	if !questionLike {
		for _, pat := range availabilityPatterns {
			if containsAnyCase(text, lower, pat) {
				questionLike = true
				break
			}
		}
	}

	if !hasKeyword && !(questionLike && hasTimeRef) {
		return nil
	}

	info := &model.SchedulingInfo{IsScheduling: true}
	for _, ent := range entities {
		switch ent.Type {
		case model.EntityPerson:
			info.Participants = append(info.Participants, ent.Value)
		case model.EntityPlace:
			info.Locations = append(info.Locations, ent.Value)
		case model.EntityActivity:
			info.Activities = append(info.Activities, ent.Value)
		case model.EntityTime:
			info.TimeReferences = append(info.TimeReferences, ent.Value)
		case model.EntityConfirmation:
			info.Confirmations = append(info.Confirmations, ent.Value)
		}
	}

	for _, kw := range urgencyKeywords {
		if containsAnyCase(text, lower, kw) {
			info.Urgent = true
			break
		}
	}

	return info
}

// containsAnyCase matches Hebrew terms against the original text and
// Latin terms against the lowercased text.
func containsAnyCase(text, lower, term string) bool {
	if containsHebrew(term) {
		return strings.Contains(text, term)
	}
	return strings.Contains(lower, term)
}
