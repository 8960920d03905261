package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations. Versions are
// sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS task (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	due_date        INTEGER
);

CREATE INDEX IF NOT EXISTS idx_task_organization_due ON task(organization_id, due_date);

CREATE TABLE IF NOT EXISTS task_reminder_preference (
	task_id      TEXT NOT NULL,
	user_id      TEXT NOT NULL,
	lead_minutes INTEGER,
	PRIMARY KEY (task_id, user_id)
);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS task_reminder_delivery (
	id              TEXT PRIMARY KEY,
	task_id         TEXT NOT NULL,
	user_id         TEXT NOT NULL,
	organization_id TEXT NOT NULL,
	person_id       TEXT NOT NULL DEFAULT '',
	task_title      TEXT NOT NULL DEFAULT '',
	task_due_at     INTEGER NOT NULL,
	remind_at       INTEGER NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'acknowledged', 'dismissed', 'superseded')),
	pushed_at       INTEGER,
	resolved_at     INTEGER,
	created_at      INTEGER NOT NULL,
	UNIQUE (task_id, user_id, remind_at),
	CHECK (remind_at <= task_due_at)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_delivery_one_pending
	ON task_reminder_delivery(task_id, user_id) WHERE status = 'pending';

CREATE INDEX IF NOT EXISTS idx_delivery_user_pending
	ON task_reminder_delivery(user_id, organization_id, remind_at) WHERE status = 'pending';
`,
	},
	{
		version: 3,
		sql: `
CREATE TABLE IF NOT EXISTS push_subscription (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	organization_id TEXT NOT NULL,
	person_id       TEXT NOT NULL DEFAULT '',
	channel         TEXT NOT NULL,
	endpoint        TEXT NOT NULL,
	created_at      INTEGER NOT NULL,
	UNIQUE (channel, endpoint)
);

CREATE INDEX IF NOT EXISTS idx_subscription_user ON push_subscription(user_id, organization_id);

CREATE TABLE IF NOT EXISTS push_notification (
	subscription_id TEXT NOT NULL REFERENCES push_subscription(id) ON DELETE CASCADE,
	tag             TEXT NOT NULL,
	message_ref     TEXT NOT NULL DEFAULT '',
	task_id         TEXT NOT NULL,
	delivery_id     TEXT NOT NULL,
	created_at      INTEGER NOT NULL,
	PRIMARY KEY (subscription_id, tag)
);
`,
	},
}
