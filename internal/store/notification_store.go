package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nhle/leave-management/internal/model"
)

// notificationRow mirrors the notifications table.
type notificationRow struct {
	UserID     int64     `db:"user_id"`
	ID         int64     `db:"id"`
	Position   int       `db:"position"`
	Title      string    `db:"title"`
	Message    string    `db:"message"`
	Type       string    `db:"type"`
	Read       int       `db:"read"`
	CreatedAt  time.Time `db:"created_at"`
	ActionURL  string    `db:"action_url"`
	ActionText string    `db:"action_text"`
	Data       string    `db:"data"`
}

// SaveNotifications replaces the cached list for userID, keeping its order.
func (s *SQLiteStore) SaveNotifications(ctx context.Context, userID int64, list []model.Notification) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clearing notifications for user %d: %w", userID, err)
	}

	if len(list) > 0 {
		const query = `
			INSERT OR REPLACE INTO notifications (
				user_id, id, position, title, message, type, read,
				created_at, action_url, action_text, data
			) VALUES (
				:user_id, :id, :position, :title, :message, :type, :read,
				:created_at, :action_url, :action_text, :data
			)`

		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return fmt.Errorf("preparing notification insert: %w", err)
		}
		defer stmt.Close()

		for i, n := range list {
			row := notificationRow{
				UserID:     userID,
				ID:         n.ID,
				Position:   i,
				Title:      n.Title,
				Message:    n.Message,
				Type:       string(n.Type),
				Read:       boolToInt(n.Read),
				CreatedAt:  n.CreatedAt.UTC(),
				ActionURL:  n.ActionURL,
				ActionText: n.ActionText,
				Data:       string(n.Data),
			}
			if _, err := stmt.ExecContext(ctx, row); err != nil {
				return fmt.Errorf("caching notification %d: %w", n.ID, err)
			}
		}
	}

	return tx.Commit()
}

// LoadNotifications returns the cached list for userID in saved order.
func (s *SQLiteStore) LoadNotifications(ctx context.Context, userID int64) ([]model.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM notifications WHERE user_id = ? ORDER BY position", userID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading notifications for user %d: %w", userID, err)
	}

	out := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		n := model.Notification{
			ID:         r.ID,
			UserID:     r.UserID,
			Title:      r.Title,
			Message:    r.Message,
			Type:       model.NotificationType(r.Type),
			Read:       r.Read != 0,
			CreatedAt:  model.Timestamp{Time: r.CreatedAt.Local()},
			ActionURL:  r.ActionURL,
			ActionText: r.ActionText,
		}
		if r.Data != "" {
			n.Data = json.RawMessage(r.Data)
		}
		out = append(out, n)
	}
	return out, nil
}
