package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nhle/leave-management/internal/model"
)

// SaveLeaveApplications replaces one cached list for ownerID. Each
// application is stored whole as JSON next to its status and start date.
func (s *SQLiteStore) SaveLeaveApplications(
	ctx context.Context,
	ownerID int64,
	list LeaveList,
	apps []model.LeaveApplication,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"DELETE FROM leave_applications WHERE owner_id = ? AND list = ?", ownerID, string(list),
	)
	if err != nil {
		return fmt.Errorf("clearing %s leave applications: %w", list, err)
	}

	const query = `
		INSERT OR REPLACE INTO leave_applications (
			owner_id, list, id, position, status, start_date, payload, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	fetchedAt := s.now().UTC()
	for i, app := range apps {
		payload, err := json.Marshal(app)
		if err != nil {
			return fmt.Errorf("marshaling leave application %d: %w", app.ID, err)
		}
		_, err = tx.ExecContext(ctx, query,
			ownerID, string(list), app.ID, i, string(app.Status),
			app.StartDate.String(), string(payload), fetchedAt,
		)
		if err != nil {
			return fmt.Errorf("caching leave application %d: %w", app.ID, err)
		}
	}

	return tx.Commit()
}

// LoadLeaveApplications returns one cached list for ownerID in saved order.
func (s *SQLiteStore) LoadLeaveApplications(
	ctx context.Context,
	ownerID int64,
	list LeaveList,
) ([]model.LeaveApplication, error) {
	var payloads []string
	err := s.db.SelectContext(ctx, &payloads, `
		SELECT payload FROM leave_applications
		WHERE owner_id = ? AND list = ?
		ORDER BY position`,
		ownerID, string(list),
	)
	if err != nil {
		return nil, fmt.Errorf("loading %s leave applications: %w", list, err)
	}

	out := make([]model.LeaveApplication, 0, len(payloads))
	for _, p := range payloads {
		var app model.LeaveApplication
		if err := json.Unmarshal([]byte(p), &app); err != nil {
			return nil, fmt.Errorf("unmarshaling cached leave application: %w", err)
		}
		out = append(out, app)
	}
	return out, nil
}
