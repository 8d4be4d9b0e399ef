package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"flatsheet/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  identifier TEXT NOT NULL,
  source TEXT NOT NULL,
  status TEXT NOT NULL,
  errorCount INTEGER NOT NULL DEFAULT 0,
  detail TEXT NOT NULL DEFAULT '',
  outputsJson TEXT NOT NULL DEFAULT '[]',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_identifier ON runs(identifier);

CREATE TABLE IF NOT EXISTS run_errors (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  seq INTEGER NOT NULL,
  type TEXT NOT NULL,
  message TEXT NOT NULL,
  rowNo INTEGER NOT NULL,
  UNIQUE(runId, seq),
  FOREIGN KEY(runId) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// InsertRun stores a finished run and its validation errors in one
// transaction, keeping the errors in accumulation order.
func (d *DB) InsertRun(run internal.RunRecord, errs []internal.ValidationError) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	outputs := run.Outputs
	if outputs == nil {
		outputs = []string{}
	}
	outputsJSON, _ := json.Marshal(outputs)
	if _, err := tx.Exec(`
INSERT INTO runs (id, identifier, source, status, errorCount, detail, outputsJson)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, run.ID, run.Identifier, run.Source, string(run.Status), len(errs), run.Detail, string(outputsJSON)); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO run_errors (runId, seq, type, message, rowNo) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range errs {
		if _, err := stmt.Exec(run.ID, i+1, string(e.Type), e.Message, e.Row); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListRuns(limit int) ([]internal.RunRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, identifier, source, status, errorCount, detail, outputsJson, createdAt
FROM runs ORDER BY createdAt DESC, rowid DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (d *DB) GetRun(id string) (*internal.RunRecord, error) {
	row := d.conn.QueryRow(`
SELECT id, identifier, source, status, errorCount, detail, outputsJson, createdAt
FROM runs WHERE id = ?
`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (d *DB) GetRunErrors(runID string) ([]internal.ValidationError, error) {
	rows, err := d.conn.Query(`SELECT type, message, rowNo FROM run_errors WHERE runId = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ValidationError
	for rows.Next() {
		var e internal.ValidationError
		var errType string
		if err := rows.Scan(&errType, &e.Message, &e.Row); err != nil {
			return nil, err
		}
		e.Type = internal.ErrorType(errType)
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (internal.RunRecord, error) {
	var run internal.RunRecord
	var status, outputsJSON string
	if err := s.Scan(&run.ID, &run.Identifier, &run.Source, &status, &run.ErrorCount, &run.Detail, &outputsJSON, &run.CreatedAt); err != nil {
		return internal.RunRecord{}, err
	}
	run.Status = internal.RunStatus(status)
	_ = json.Unmarshal([]byte(outputsJSON), &run.Outputs)
	return run, nil
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

const emailColumns = `id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef`

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	return d.getEmail(`SELECT `+emailColumns+` FROM emails WHERE provider = ? AND messageId = ?`, provider, messageID)
}

func (d *DB) GetEmailByID(id int) (*internal.EmailRow, error) {
	return d.getEmail(`SELECT `+emailColumns+` FROM emails WHERE id = ?`, id)
}

func (d *DB) getEmail(query string, args ...any) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.QueryRow(query, args...).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListEmailsByStatus returns the oldest emails in status, optionally limited
// to one provider ("" matches all).
func (d *DB) ListEmailsByStatus(status, provider string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`
SELECT `+emailColumns+` FROM emails
WHERE status = ? AND (? = '' OR provider = ?)
ORDER BY receivedAt ASC, id ASC LIMIT ?
`, status, provider, provider, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		var row internal.EmailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
