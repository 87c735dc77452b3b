package store

const createTableSQL = `
CREATE TABLE IF NOT EXISTS reports (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    snapshot_id     TEXT NOT NULL UNIQUE,
    hostname        TEXT NOT NULL,
    os_name         TEXT NOT NULL DEFAULT '',
    kernel_version  TEXT NOT NULL DEFAULT '',
    collected_at    TEXT NOT NULL,
    stored_at       TEXT NOT NULL,
    report_json     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_hostname ON reports(hostname);
CREATE INDEX IF NOT EXISTS idx_reports_collected_at ON reports(collected_at);
`
