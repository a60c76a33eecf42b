package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/nextlevelbuilder/waindex/internal/search"
)

// toolError renders an engine failure for the caller. Validation problems
// surface as-is; everything else becomes a generic failure line so
// internals never leak into chat output.
func toolError(op string, err error) *Result {
	var verr *search.ValidationError
	if errors.As(err, &verr) {
		return ErrorResult(verr.Error()).WithError(err)
	}
	var nerr *search.NotReadyError
	if errors.As(err, &nerr) {
		return ErrorResult("the message index is still loading, try again shortly").WithError(err)
	}
	return ErrorResult(op + " failed, see server logs").WithError(err)
}

// RegisterAll wires the full query-tool surface over one engine.
func RegisterAll(r *Registry, e *search.Engine) {
	r.Register(&SearchTool{engine: e})
	r.Register(&FindPersonTool{engine: e})
	r.Register(&MessagesByDateTool{engine: e})
	r.Register(&URLsBySenderTool{engine: e})
	r.Register(&ScheduleWithPersonTool{engine: e})
	r.Register(&PlansForDayTool{engine: e})
}

// SearchTool is the general hybrid search entry point.
type SearchTool struct {
	engine *search.Engine
}

func (t *SearchTool) Name() string { return "search_messages" }

func (t *SearchTool) Description() string {
	return "Search indexed WhatsApp messages with a natural-language query (Hebrew or English). Understands senders ('from Yahav'), relative dates ('yesterday', 'מחר'), links, and plans."
}

func (t *SearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Free-text search query",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum results to return (default 10)",
			},
			"message_type_filter": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"sent", "received", "all"},
				"description": "Restrict to messages you sent or received",
			},
		},
		"required": []string{"query"},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query := argString(args, "query")
	results, err := t.engine.Search(ctx, query, argInt(args, "limit", 0), argString(args, "message_type_filter"))
	if err != nil {
		return toolError("search", err)
	}
	if len(results) == 0 {
		return noResults(fmt.Sprintf("query %q", query))
	}
	return NewResult(formatResults(results))
}

// FindPersonTool finds messages involving a person across direct and
// group chats.
type FindPersonTool struct {
	engine *search.Engine
}

func (t *FindPersonTool) Name() string { return "find_person_conversations" }

func (t *FindPersonTool) Description() string {
	return "Find messages involving a person across all chats, including group-chat messages that mention them without them being the sender."
}

func (t *FindPersonTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"person_name": map[string]interface{}{
				"type":        "string",
				"description": "Name to look for (sender, mention, or chat name)",
			},
			"date_range": map[string]interface{}{
				"type":        "string",
				"description": "Optional period like 'this week' or 'השבוע'",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum results to return (default 10)",
			},
		},
		"required": []string{"person_name"},
	}
}

func (t *FindPersonTool) Execute(_ context.Context, args map[string]interface{}) *Result {
	person := argString(args, "person_name")
	results, err := t.engine.FindPersonConversations(person, argString(args, "date_range"), argInt(args, "limit", 0))
	if err != nil {
		return toolError("person search", err)
	}
	if len(results) == 0 {
		return noResults(person)
	}
	return NewResult(formatResults(results))
}

// MessagesByDateTool lists messages from a natural-language period.
type MessagesByDateTool struct {
	engine *search.Engine
}

func (t *MessagesByDateTool) Name() string { return "get_messages_by_date" }

func (t *MessagesByDateTool) Description() string {
	return "List messages from a specific period described in natural language: 'yesterday', 'last week', 'אתמול'. Optionally filtered to one sender."
}

func (t *MessagesByDateTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"date_query": map[string]interface{}{
				"type":        "string",
				"description": "Natural-language period",
			},
			"sender_filter": map[string]interface{}{
				"type":        "string",
				"description": "Optional sender name substring",
			},
		},
		"required": []string{"date_query"},
	}
}

func (t *MessagesByDateTool) Execute(_ context.Context, args map[string]interface{}) *Result {
	dateQuery := argString(args, "date_query")
	results, _, err := t.engine.MessagesByDate(dateQuery, argString(args, "sender_filter"), argInt(args, "limit", 0))
	if err != nil {
		return toolError("date lookup", err)
	}
	if len(results) == 0 {
		return noResults(dateQuery)
	}
	return NewResult(formatResults(results))
}

// URLsBySenderTool lists links a person shared.
type URLsBySenderTool struct {
	engine *search.Engine
}

func (t *URLsBySenderTool) Name() string { return "get_urls_by_sender" }

func (t *URLsBySenderTool) Description() string {
	return "List links a person shared, with the surrounding context and a purpose classification (restaurant, movie, location, ...)."
}

func (t *URLsBySenderTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"sender_name": map[string]interface{}{
				"type":        "string",
				"description": "Sender name substring",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum links to return (default 10)",
			},
		},
		"required": []string{"sender_name"},
	}
}

func (t *URLsBySenderTool) Execute(_ context.Context, args map[string]interface{}) *Result {
	sender := argString(args, "sender_name")
	urls, err := t.engine.URLsBySender(sender, argInt(args, "limit", 10))
	if err != nil {
		return toolError("url lookup", err)
	}
	if len(urls) == 0 {
		return noResults("links shared by " + sender)
	}
	return NewResult(formatURLs(urls))
}

// ScheduleWithPersonTool finds planning threads with a person.
type ScheduleWithPersonTool struct {
	engine *search.Engine
}

func (t *ScheduleWithPersonTool) Name() string { return "find_schedule_with_person" }

func (t *ScheduleWithPersonTool) Description() string {
	return "Find conversations where plans with a person are being made inside a time period, returning the whole planning thread."
}

func (t *ScheduleWithPersonTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"person_name": map[string]interface{}{
				"type":        "string",
				"description": "Person the plans involve",
			},
			"time_period": map[string]interface{}{
				"type":        "string",
				"description": "Period like 'this week', 'next week', 'השבוע'",
			},
		},
		"required": []string{"person_name", "time_period"},
	}
}

func (t *ScheduleWithPersonTool) Execute(_ context.Context, args map[string]interface{}) *Result {
	person := argString(args, "person_name")
	results, err := t.engine.FindScheduleWithPerson(person, argString(args, "time_period"), argInt(args, "limit", 0))
	if err != nil {
		return toolError("schedule search", err)
	}
	if len(results) == 0 {
		return noResults("plans with " + person)
	}
	return NewResult(formatResults(results))
}

// PlansForDayTool lists plans landing on a specific day.
type PlansForDayTool struct {
	engine *search.Engine
}

func (t *PlansForDayTool) Name() string { return "check_plans_for_day" }

func (t *PlansForDayTool) Description() string {
	return "Check what plans exist for a given day ('tomorrow', 'friday', 'מחר'), using the time references inside messages, not just when they were sent."
}

func (t *PlansForDayTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"day": map[string]interface{}{
				"type":        "string",
				"description": "Day to check",
			},
		},
		"required": []string{"day"},
	}
}

func (t *PlansForDayTool) Execute(_ context.Context, args map[string]interface{}) *Result {
	day := argString(args, "day")
	results, err := t.engine.CheckPlansForDay(day, argInt(args, "limit", 0))
	if err != nil {
		return toolError("plans lookup", err)
	}
	if len(results) == 0 {
		return noResults("plans on " + day)
	}
	return NewResult(formatResults(results))
}
