package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS blobs (
    key                  TEXT PRIMARY KEY,
    data                 BLOB NOT NULL,
    updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS collection_runs (
    id                   TEXT PRIMARY KEY,
    started_at           TEXT NOT NULL,
    finished_at          TEXT NOT NULL,
    host                 TEXT,
    collected            INTEGER NOT NULL DEFAULT 0,
    updated              INTEGER NOT NULL DEFAULT 0,
    total                INTEGER NOT NULL DEFAULT 0,
    pages                INTEGER NOT NULL DEFAULT 0,
    error                TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON collection_runs(started_at);
`
