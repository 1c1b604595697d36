package journal

// schemaVersionV1 is the only schema so far.
const schemaVersionV1 = 1

var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS compilations (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id       TEXT NOT NULL UNIQUE,
	filename         TEXT NOT NULL,
	started_at       TEXT NOT NULL,
	duration_ns      INTEGER NOT NULL,
	outcome          TEXT NOT NULL,
	exit_code        INTEGER NOT NULL,
	token_count      INTEGER NOT NULL DEFAULT 0,
	diagnostic_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_compilations_outcome ON compilations(outcome);
`
