package store

import "fmt"

// GroupStats summarizes one group conversation.
type GroupStats struct {
	ChatID       string `db:"chat_id" json:"chatId"`
	ChatName     string `db:"chat_name" json:"chatName"`
	Messages     int    `db:"messages" json:"messages"`
	Participants int    `db:"participants" json:"participants"`
}

// MessageCount returns the number of live (non-deleted) message rows.
func (s *Store) MessageCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM messages WHERE deleted = 0"); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// TotalCount returns all message rows including deleted-tagged ones.
func (s *Store) TotalCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM messages"); err != nil {
		return 0, fmt.Errorf("count all messages: %w", err)
	}
	return count, nil
}

// MostRecentTimestamp returns the newest message timestamp in epoch ms,
// or 0 for an empty store.
func (s *Store) MostRecentTimestamp() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ts int64
	if err := s.db.Get(&ts, "SELECT COALESCE(MAX(timestamp), 0) FROM messages WHERE deleted = 0"); err != nil {
		return 0, fmt.Errorf("most recent timestamp: %w", err)
	}
	return ts, nil
}

// GroupStatsAll returns per-group message and distinct-participant counts,
// largest groups first.
func (s *Store) GroupStatsAll() ([]GroupStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats []GroupStats
	err := s.db.Select(&stats, `
		SELECT chat_id, MAX(chat_name) AS chat_name,
			COUNT(*) AS messages,
			COUNT(DISTINCT sender_name) AS participants
		FROM messages
		WHERE is_group = 1 AND deleted = 0
		GROUP BY chat_id
		ORDER BY messages DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("group stats: %w", err)
	}
	return stats, nil
}
