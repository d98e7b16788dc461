package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	user_id     INTEGER NOT NULL,
	id          INTEGER NOT NULL,
	position    INTEGER NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL DEFAULT 'GENERAL',
	read        INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	created_at  DATETIME NOT NULL,
	action_url  TEXT NOT NULL DEFAULT '',
	action_text TEXT NOT NULL DEFAULT '',
	data        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_position
	ON notifications(user_id, position);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS leave_applications (
	owner_id   INTEGER NOT NULL,
	list       TEXT NOT NULL CHECK(list IN ('mine', 'approvals')),
	id         INTEGER NOT NULL,
	position   INTEGER NOT NULL,
	status     TEXT NOT NULL,
	start_date TEXT NOT NULL DEFAULT '',
	payload    TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	PRIMARY KEY (owner_id, list, id)
);

CREATE INDEX IF NOT EXISTS idx_leave_applications_status
	ON leave_applications(owner_id, list, status);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
