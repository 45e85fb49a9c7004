// Package runlog keeps a provenance catalog of toolkit runs in a sqlite
// database: the command line, input and output files, and every external
// tool invocation. It is enabled when the configuration names a catalog
// path; processing never depends on it.
package runlog

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Log is an open provenance catalog.
type Log struct {
	*sql.DB
}

// Open opens (creating if needed) the catalog at path and brings the schema
// up to date.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening run catalog %s: %w", path, err)
	}

	l := &Log{db}
	if err := l.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading catalog migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(l.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	// Closing m would close the underlying connection; leave it to the GC.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating run catalog: %w", err)
	}
	return nil
}

// Run is one recorded toolkit invocation.
type Run struct {
	ID         int64
	Command    string
	Arguments  string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	ExitStatus sql.NullInt64
}

// StartRun records the beginning of a run and returns its id.
func (l *Log) StartRun(command string, args []string) (int64, error) {
	res, err := l.Exec(
		`INSERT INTO runs (command, arguments) VALUES (?, ?)`,
		command, strings.Join(args, " "))
	if err != nil {
		return 0, fmt.Errorf("recording run start: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun records the exit status and finish time of a run.
func (l *Log) FinishRun(runID int64, exitStatus int) error {
	_, err := l.Exec(
		`UPDATE runs SET finished_at = CURRENT_TIMESTAMP, exit_status = ? WHERE run_id = ?`,
		exitStatus, runID)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

func (l *Log) addFile(runID int64, role, path string) error {
	_, err := l.Exec(
		`INSERT INTO run_files (run_id, role, path) VALUES (?, ?, ?)`,
		runID, role, path)
	if err != nil {
		return fmt.Errorf("recording %s file: %w", role, err)
	}
	return nil
}

// AddInput records an input file of the run.
func (l *Log) AddInput(runID int64, path string) error {
	return l.addFile(runID, "input", path)
}

// AddOutput records an output file of the run.
func (l *Log) AddOutput(runID int64, path string) error {
	return l.addFile(runID, "output", path)
}

// AddInvocation records one external tool command line.
func (l *Log) AddInvocation(runID int64, commandLine string) error {
	_, err := l.Exec(
		`INSERT INTO invocations (run_id, command_line) VALUES (?, ?)`,
		runID, commandLine)
	if err != nil {
		return fmt.Errorf("recording invocation: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (l *Log) Runs(limit int) ([]Run, error) {
	rows, err := l.Query(
		`SELECT run_id, command, arguments, started_at, finished_at, exit_status
		 FROM runs ORDER BY run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Command, &r.Arguments,
			&r.StartedAt, &r.FinishedAt, &r.ExitStatus); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Files returns the recorded input or output paths of a run.
func (l *Log) Files(runID int64, role string) ([]string, error) {
	rows, err := l.Query(
		`SELECT path FROM run_files WHERE run_id = ? AND role = ? ORDER BY file_id`,
		runID, role)
	if err != nil {
		return nil, fmt.Errorf("querying run files: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Invocations returns the recorded tool command lines of a run, in order.
func (l *Log) Invocations(runID int64) ([]string, error) {
	rows, err := l.Query(
		`SELECT command_line FROM invocations WHERE run_id = ? ORDER BY invocation_id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("querying invocations: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// Recorder adapts a run to the subprocess runner's logger so every tool
// command line lands in the catalog as a side effect of running it.
type Recorder struct {
	Log   *Log
	RunID int64
}

// Debugf records the rendered line. Catalog write failures are swallowed;
// provenance must never break processing.
func (r *Recorder) Debugf(format string, args ...interface{}) {
	_ = r.Log.AddInvocation(r.RunID, fmt.Sprintf(format, args...))
}
