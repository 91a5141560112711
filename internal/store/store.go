// Package store exports computed schedules to a SQLite file.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/tiercost/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrRunNotFound is returned by LoadRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Store is a SQLite export of schedule runs.
type Store struct {
	db *sql.DB
}

// RunInfo describes a saved run without its rows.
type RunInfo struct {
	ID             int64
	UUID           uuid.UUID // stable across databases, unlike ID
	Label          string
	CreatedAt      time.Time
	Months         int
	FirstMonthCost float64
	TotalCost      float64
}

// Run is a saved run with its usage snapshot and every month row.
type Run struct {
	RunInfo
	Usage model.UsageConfiguration
	Rows  []model.MonthRow
}

// Open opens or creates the export database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening export db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the export database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores usage and its schedule rows in one transaction and
// returns the new run id.
func (s *Store) SaveRun(label string, usage model.UsageConfiguration, rows []model.MonthRow) (int64, error) {
	usageJSON, err := json.Marshal(usage)
	if err != nil {
		return 0, fmt.Errorf("encoding usage: %w", err)
	}
	summary := model.Summarize(rows)

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`INSERT INTO runs
		(run_uuid, label, created_at, months, usage_json, first_month_cost, total_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), label, time.Now().UTC().Format(time.RFC3339Nano), len(rows), string(usageJSON),
		summary.FirstMonthCost, summary.TotalCost,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	totalStmt, err := tx.Prepare(`INSERT INTO month_totals
		(run_id, month, year, month_total_cost, running_total_cost) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = totalStmt.Close() }()

	rowStmt, err := tx.Prepare(`INSERT INTO month_rows
		(run_id, month, category, usage, cost) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rowStmt.Close() }()

	for _, r := range rows {
		if _, err := totalStmt.Exec(id, r.MonthIndex, r.Year, r.MonthTotalCost, r.RunningTotalCost); err != nil {
			return 0, fmt.Errorf("inserting month %d: %w", r.MonthIndex, err)
		}
		for _, c := range model.Categories {
			if _, err := rowStmt.Exec(id, r.MonthIndex, string(c), r.Usage[c], r.Costs[c]); err != nil {
				return 0, fmt.Errorf("inserting month %d %s: %w", r.MonthIndex, c, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListRuns returns every saved run, newest first.
func (s *Store) ListRuns() ([]RunInfo, error) {
	rows, err := s.db.Query(`SELECT run_id, run_uuid, label, created_at, months, first_month_cost, total_cost
		FROM runs ORDER BY run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []RunInfo
	for rows.Next() {
		info, err := scanRunInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRunInfo(sc scanner) (RunInfo, error) {
	var (
		info    RunInfo
		id      string
		created string
	)
	if err := sc.Scan(&info.ID, &id, &info.Label, &created, &info.Months, &info.FirstMonthCost, &info.TotalCost); err != nil {
		return info, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return info, fmt.Errorf("run %d uuid: %w", info.ID, err)
	}
	info.UUID = parsed
	info.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return info, nil
}

// LoadRun reloads a saved run with its rows in month order.
func (s *Store) LoadRun(id int64) (Run, error) {
	var (
		run       Run
		usageJSON string
	)

	row := s.db.QueryRow(`SELECT run_id, run_uuid, label, created_at, months, first_month_cost, total_cost
		FROM runs WHERE run_id = ?`, id)
	info, err := scanRunInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return run, err
	}
	run.RunInfo = info

	if err := s.db.QueryRow("SELECT usage_json FROM runs WHERE run_id = ?", id).Scan(&usageJSON); err != nil {
		return run, err
	}
	if err := json.Unmarshal([]byte(usageJSON), &run.Usage); err != nil {
		return run, fmt.Errorf("decoding usage: %w", err)
	}

	totals, err := s.db.Query(`SELECT month, year, month_total_cost, running_total_cost
		FROM month_totals WHERE run_id = ? ORDER BY month`, id)
	if err != nil {
		return run, err
	}
	defer func() { _ = totals.Close() }()

	index := make(map[int]int)
	for totals.Next() {
		r := model.MonthRow{
			Usage: make(map[model.Category]float64, len(model.Categories)),
			Costs: make(map[model.Category]float64, len(model.Categories)),
		}
		if err := totals.Scan(&r.MonthIndex, &r.Year, &r.MonthTotalCost, &r.RunningTotalCost); err != nil {
			return run, err
		}
		index[r.MonthIndex] = len(run.Rows)
		run.Rows = append(run.Rows, r)
	}
	if err := totals.Err(); err != nil {
		return run, err
	}

	cats, err := s.db.Query("SELECT month, category, usage, cost FROM month_rows WHERE run_id = ?", id)
	if err != nil {
		return run, err
	}
	defer func() { _ = cats.Close() }()

	for cats.Next() {
		var (
			month       int
			cat         string
			usage, cost float64
		)
		if err := cats.Scan(&month, &cat, &usage, &cost); err != nil {
			return run, err
		}
		i, ok := index[month]
		if !ok {
			continue
		}
		run.Rows[i].Usage[model.Category(cat)] = usage
		run.Rows[i].Costs[model.Category(cat)] = cost
	}
	return run, cats.Err()
}

// DeleteRun removes a run and its rows.
func (s *Store) DeleteRun(id int64) error {
	res, err := s.db.Exec("DELETE FROM runs WHERE run_id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return nil
}
