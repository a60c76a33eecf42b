package store

import (
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/waindex/internal/model"
)

// Filter is a conjunctive message filter. Zero values mean "no
// constraint"; pointer fields distinguish unset from false.
type Filter struct {
	Content        string // full-text match over content
	Sender         string // substring, case-insensitive
	ChatID         string
	IsGroup        *bool
	StartMS        int64 // inclusive, epoch ms; 0 = unbounded
	EndMS          int64 // exclusive, epoch ms; 0 = unbounded
	HasURL         *bool
	HasScheduling  *bool
	FromMe         *bool
	IncludeDeleted bool
	Limit          int
}

const defaultQueryLimit = 50

// Query runs a filtered scan ordered by timestamp descending. When
// Content is set, candidates come from the FTS5 index first.
func (s *Store) Query(f Filter) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := f.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	var (
		conds []string
		args  []interface{}
	)

	base := "SELECT m.* FROM messages m"
	if f.Content != "" {
		base = "SELECT m.* FROM messages_fts fts JOIN messages m ON m.rowid = fts.rowid"
		conds = append(conds, "messages_fts MATCH ?")
		args = append(args, ftsQuery(f.Content))
	}

	if !f.IncludeDeleted {
		conds = append(conds, "m.deleted = 0")
	}
	if f.Sender != "" {
		conds = append(conds, "m.sender_name LIKE ? COLLATE NOCASE")
		args = append(args, "%"+f.Sender+"%")
	}
	if f.ChatID != "" {
		conds = append(conds, "m.chat_id = ?")
		args = append(args, f.ChatID)
	}
	if f.IsGroup != nil {
		conds = append(conds, "m.is_group = ?")
		args = append(args, boolToInt(*f.IsGroup))
	}
	if f.FromMe != nil {
		conds = append(conds, "m.is_from_me = ?")
		args = append(args, boolToInt(*f.FromMe))
	}
	if f.StartMS > 0 {
		conds = append(conds, "m.timestamp >= ?")
		args = append(args, f.StartMS)
	}
	if f.EndMS > 0 {
		conds = append(conds, "m.timestamp < ?")
		args = append(args, f.EndMS)
	}
	if f.HasURL != nil {
		op := "EXISTS"
		if !*f.HasURL {
			op = "NOT EXISTS"
		}
		conds = append(conds, op+" (SELECT 1 FROM urls u WHERE u.message_id = m.id)")
	}
	if f.HasScheduling != nil {
		op := "EXISTS"
		if !*f.HasScheduling {
			op = "NOT EXISTS"
		}
		conds = append(conds, op+" (SELECT 1 FROM scheduling sc WHERE sc.message_id = m.id AND sc.is_scheduling = 1)")
	}

	sqlStr := base
	if len(conds) > 0 {
		sqlStr += " WHERE " + strings.Join(conds, " AND ")
	}
	sqlStr += " ORDER BY m.timestamp DESC LIMIT ?"
	args = append(args, limit)

	return s.selectMessages(sqlStr, args...)
}

// BySenderAcrossChats finds messages related to a person across BOTH
// individual and group conversations. The name is matched against sender,
// content, and chat name: group-chat discussions about a person often do
// not have that person as the literal sender.
func (s *Store) BySenderAcrossChats(name string, startMS, endMS int64, limit int) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultQueryLimit
	}

	conds := []string{
		"m.deleted = 0",
		"(m.sender_name LIKE ? COLLATE NOCASE OR m.content LIKE ? COLLATE NOCASE OR m.chat_name LIKE ? COLLATE NOCASE)",
	}
	pat := "%" + name + "%"
	args := []interface{}{pat, pat, pat}

	if startMS > 0 {
		conds = append(conds, "m.timestamp >= ?")
		args = append(args, startMS)
	}
	if endMS > 0 {
		conds = append(conds, "m.timestamp < ?")
		args = append(args, endMS)
	}
	args = append(args, limit)

	sqlStr := "SELECT m.* FROM messages m WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY m.timestamp DESC LIMIT ?"
	return s.selectMessages(sqlStr, args...)
}

// URLsBySender returns extracted URLs from messages whose sender matches
// name, most recent first.
func (s *Store) URLsBySender(name string, limit int) ([]model.URLResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultQueryLimit
	}

	type row struct {
		URL           string `db:"url"`
		Domain        string `db:"domain"`
		Purpose       string `db:"purpose"`
		ContextBefore string `db:"context_before"`
		SenderName    string `db:"sender_name"`
		ChatName      string `db:"chat_name"`
		Timestamp     int64  `db:"timestamp"`
	}
	var rows []row
	err := s.db.Select(&rows, `
		SELECT u.url, u.domain, u.purpose, u.context_before, m.sender_name, m.chat_name, m.timestamp
		FROM urls u
		JOIN messages m ON m.id = u.message_id
		WHERE m.deleted = 0 AND m.sender_name LIKE ? COLLATE NOCASE
		ORDER BY m.timestamp DESC
		LIMIT ?
	`, "%"+name+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("urls by sender %s: %w", name, err)
	}

	out := make([]model.URLResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.URLResult{
			URL:        r.URL,
			Domain:     r.Domain,
			Purpose:    model.URLPurpose(r.Purpose),
			SenderName: r.SenderName,
			ChatName:   r.ChatName,
			Timestamp:  r.Timestamp,
			Context:    strings.TrimSpace(r.ContextBefore),
		})
	}
	return out, nil
}

func (s *Store) selectMessages(sqlStr string, args ...interface{}) ([]model.Message, error) {
	var rows []messageRow
	if err := s.db.Select(&rows, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	msgs := make([]model.Message, 0, len(rows))
	for _, r := range rows {
		msg := r.toModel()
		if err := s.loadChildren(&msg); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// ftsQuery turns free text into an FTS5 OR-query of quoted tokens so user
// punctuation never reaches the match parser.
func ftsQuery(text string) string {
	fields := strings.Fields(text)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		quoted = append(quoted, `"`+f+`"`)
	}
	if len(quoted) == 0 {
		return `""`
	}
	return strings.Join(quoted, " OR ")
}
