package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/waindex/internal/model"
)

var (
	// ErrEmptyContent is returned for messages with empty trimmed content;
	// such records are never persisted.
	ErrEmptyContent = errors.New("message content is empty")

	// ErrNotFound is returned when a message ID does not exist.
	ErrNotFound = errors.New("message not found")
)

type messageRow struct {
	ID           string `db:"id"`
	ChatID       string `db:"chat_id"`
	ChatName     string `db:"chat_name"`
	IsGroup      int    `db:"is_group"`
	SenderName   string `db:"sender_name"`
	SenderNumber string `db:"sender_number"`
	Content      string `db:"content"`
	Timestamp    int64  `db:"timestamp"`
	MessageType  string `db:"message_type"`
	Languages    string `db:"languages"`
	IsFromMe     int    `db:"is_from_me"`
	Deleted      int    `db:"deleted"`
}

func (r messageRow) toModel() model.Message {
	return model.Message{
		ID:             r.ID,
		ChatID:         r.ChatID,
		ChatName:       r.ChatName,
		IsGroupMessage: r.IsGroup != 0,
		SenderName:     r.SenderName,
		SenderNumber:   r.SenderNumber,
		Content:        r.Content,
		Timestamp:      r.Timestamp,
		MessageType:    model.MessageType(r.MessageType),
		Languages:      unmarshalStrings(r.Languages),
		IsFromMe:       r.IsFromMe != 0,
		Deleted:        r.Deleted != 0,
	}
}

// Save upserts a message together with its derived URL, entity, and
// scheduling rows in one transaction. On conflict the row is overwritten
// and children are deleted and reinserted so no orphans survive an edit.
func (s *Store) Save(msg model.Message) error {
	if strings.TrimSpace(msg.Content) == "" {
		return ErrEmptyContent
	}
	if len(msg.Languages) == 0 {
		msg.Languages = []string{model.LangUnknown}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO messages (id, chat_id, chat_name, is_group, sender_name, sender_number,
			content, timestamp, message_type, languages, is_from_me, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chat_id = excluded.chat_id,
			chat_name = excluded.chat_name,
			is_group = excluded.is_group,
			sender_name = excluded.sender_name,
			sender_number = excluded.sender_number,
			content = excluded.content,
			timestamp = excluded.timestamp,
			message_type = excluded.message_type,
			languages = excluded.languages,
			is_from_me = excluded.is_from_me,
			deleted = excluded.deleted
	`, msg.ID, msg.ChatID, msg.ChatName, boolToInt(msg.IsGroupMessage), msg.SenderName,
		msg.SenderNumber, msg.Content, msg.Timestamp, string(msg.MessageType),
		marshalStrings(msg.Languages), boolToInt(msg.IsFromMe), boolToInt(msg.Deleted))
	if err != nil {
		return fmt.Errorf("upsert message %s: %w", msg.ID, err)
	}

	for _, table := range []string{"urls", "entities", "scheduling"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE message_id = ?", msg.ID); err != nil {
			return fmt.Errorf("clear %s for %s: %w", table, msg.ID, err)
		}
	}

	for _, u := range msg.URLs {
		_, err := tx.Exec(`
			INSERT INTO urls (message_id, url, domain, purpose, context_before, context_after, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, msg.ID, u.URL, u.Domain, string(u.Purpose), u.ContextBefore, u.ContextAfter, u.Position)
		if err != nil {
			return fmt.Errorf("insert url for %s: %w", msg.ID, err)
		}
	}

	for _, e := range msg.Entities {
		_, err := tx.Exec(`
			INSERT INTO entities (message_id, type, value, parsed_time)
			VALUES (?, ?, ?, ?)
		`, msg.ID, string(e.Type), e.Value, e.ParsedTime)
		if err != nil {
			return fmt.Errorf("insert entity for %s: %w", msg.ID, err)
		}
	}

	if sch := msg.Scheduling; sch != nil && sch.IsScheduling {
		_, err := tx.Exec(`
			INSERT INTO scheduling (message_id, is_scheduling, participants, locations,
				activities, time_refs, confirmations, urgent)
			VALUES (?, 1, ?, ?, ?, ?, ?, ?)
		`, msg.ID, marshalStrings(sch.Participants), marshalStrings(sch.Locations),
			marshalStrings(sch.Activities), marshalStrings(sch.TimeReferences),
			marshalStrings(sch.Confirmations), boolToInt(sch.Urgent))
		if err != nil {
			return fmt.Errorf("insert scheduling for %s: %w", msg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save %s: %w", msg.ID, err)
	}
	return nil
}

// GetByID loads a message with its child rows.
func (s *Store) GetByID(id string) (model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row messageRow
	if err := s.db.Get(&row, "SELECT * FROM messages WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Message{}, ErrNotFound
		}
		return model.Message{}, fmt.Errorf("get message %s: %w", id, err)
	}

	msg := row.toModel()
	if err := s.loadChildren(&msg); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

// TagDeleted marks a message row logically deleted. The row is retained
// for audit value.
func (s *Store) TagDeleted(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("UPDATE messages SET deleted = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("tag deleted %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// loadChildren fills URLs, Entities, and Scheduling for a message.
// Callers hold at least the read lock.
func (s *Store) loadChildren(msg *model.Message) error {
	type urlRow struct {
		URL           string `db:"url"`
		Domain        string `db:"domain"`
		Purpose       string `db:"purpose"`
		ContextBefore string `db:"context_before"`
		ContextAfter  string `db:"context_after"`
		Position      int    `db:"position"`
	}
	var urls []urlRow
	if err := s.db.Select(&urls, "SELECT url, domain, purpose, context_before, context_after, position FROM urls WHERE message_id = ? ORDER BY position", msg.ID); err != nil {
		return fmt.Errorf("load urls for %s: %w", msg.ID, err)
	}
	for _, u := range urls {
		msg.URLs = append(msg.URLs, model.ExtractedURL{
			URL:           u.URL,
			Domain:        u.Domain,
			Purpose:       model.URLPurpose(u.Purpose),
			ContextBefore: u.ContextBefore,
			ContextAfter:  u.ContextAfter,
			Position:      u.Position,
		})
	}

	type entityRow struct {
		Type       string `db:"type"`
		Value      string `db:"value"`
		ParsedTime int64  `db:"parsed_time"`
	}
	var ents []entityRow
	if err := s.db.Select(&ents, "SELECT type, value, parsed_time FROM entities WHERE message_id = ?", msg.ID); err != nil {
		return fmt.Errorf("load entities for %s: %w", msg.ID, err)
	}
	for _, e := range ents {
		msg.Entities = append(msg.Entities, model.Entity{
			Type:       model.EntityType(e.Type),
			Value:      e.Value,
			ParsedTime: e.ParsedTime,
		})
	}

	type schedulingRow struct {
		Participants  string `db:"participants"`
		Locations     string `db:"locations"`
		Activities    string `db:"activities"`
		TimeRefs      string `db:"time_refs"`
		Confirmations string `db:"confirmations"`
		Urgent        int    `db:"urgent"`
	}
	var sch []schedulingRow
	if err := s.db.Select(&sch, "SELECT participants, locations, activities, time_refs, confirmations, urgent FROM scheduling WHERE message_id = ? AND is_scheduling = 1", msg.ID); err != nil {
		return fmt.Errorf("load scheduling for %s: %w", msg.ID, err)
	}
	if len(sch) > 0 {
		msg.Scheduling = &model.SchedulingInfo{
			IsScheduling:   true,
			Participants:   unmarshalStrings(sch[0].Participants),
			Locations:      unmarshalStrings(sch[0].Locations),
			Activities:     unmarshalStrings(sch[0].Activities),
			TimeReferences: unmarshalStrings(sch[0].TimeRefs),
			Confirmations:  unmarshalStrings(sch[0].Confirmations),
			Urgent:         sch[0].Urgent != 0,
		}
	}

	return nil
}
