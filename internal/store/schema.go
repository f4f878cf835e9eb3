package store

const schema = `
CREATE TABLE IF NOT EXISTS receipts (
    name TEXT PRIMARY KEY,
    version TEXT NOT NULL,
    forge TEXT NOT NULL,
    owner TEXT NOT NULL,
    repo TEXT NOT NULL,
    rev TEXT NOT NULL,
    src_hash TEXT NOT NULL,
    vendor_hash TEXT NOT NULL,
    built_at TIMESTAMP NOT NULL,
    store_path TEXT NOT NULL,
    store_hash TEXT NOT NULL,
    binaries TEXT NOT NULL,
    description TEXT,
    license TEXT
);

CREATE TABLE IF NOT EXISTS build_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    version TEXT NOT NULL,
    kind TEXT NOT NULL,
    detail TEXT,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_name ON build_events(name);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON build_events(timestamp);
`
