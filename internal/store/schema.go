package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    run_id               INTEGER PRIMARY KEY AUTOINCREMENT,
    run_uuid             TEXT NOT NULL UNIQUE,
    label                TEXT NOT NULL DEFAULT '',
    created_at           TEXT NOT NULL,
    months               INTEGER NOT NULL,
    usage_json           TEXT NOT NULL,
    first_month_cost     REAL,
    total_cost           REAL
);

CREATE TABLE IF NOT EXISTS month_totals (
    run_id               INTEGER NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    month                INTEGER NOT NULL,
    year                 INTEGER NOT NULL,
    month_total_cost     REAL NOT NULL,
    running_total_cost   REAL NOT NULL,
    PRIMARY KEY (run_id, month)
);

CREATE TABLE IF NOT EXISTS month_rows (
    run_id               INTEGER NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    month                INTEGER NOT NULL,
    category             TEXT NOT NULL,
    usage                REAL NOT NULL,
    cost                 REAL NOT NULL,
    PRIMARY KEY (run_id, month, category)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`
