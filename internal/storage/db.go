package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"leadscreen/internal"
)

// DB is the local tracking database: inbound messages, screened leads and
// run records. The suppression store itself lives elsewhere and is never
// written from here.
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
CREATE TABLE IF NOT EXISTS messages (
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

CREATE TABLE IF NOT EXISTS leads (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  messageId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  source TEXT NOT NULL,
  firstName TEXT NOT NULL,
  lastName TEXT NOT NULL,
  companyName TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  skipped INTEGER NOT NULL DEFAULT 0,
  matchStatus TEXT,
  clientStatus TEXT,
  dateStatus TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(messageId, lineNo),
  FOREIGN KEY(messageId) REFERENCES messages(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  messageId INTEGER,
  source TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  outputRef TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(messageId) REFERENCES messages(id)
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

func (d *DB) UpsertMessage(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.MessageRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO messages (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
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
		return internal.MessageRow{}, err
	}

	row, err := d.GetMessageByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.MessageRow{}, err
	}
	if row == nil {
		return internal.MessageRow{}, errors.New("failed to upsert message")
	}
	return *row, nil
}

func (d *DB) GetMessageByProviderMessageID(provider, messageID string) (*internal.MessageRow, error) {
	var row internal.MessageRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM messages WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
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

func (d *DB) MustMessageByProviderMessageID(provider, messageID string) (internal.MessageRow, error) {
	row, err := d.GetMessageByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.MessageRow{}, err
	}
	if row == nil {
		return internal.MessageRow{}, fmt.Errorf("message not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListMessagesByStatus(status string, limit int) ([]internal.MessageRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM messages WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MessageRow
	for rows.Next() {
		var row internal.MessageRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateMessageStatus(messageID int, status string) error {
	_, err := d.conn.Exec(`UPDATE messages SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, messageID)
	return err
}

// ClearMessageLeads drops earlier screening results so a message can be
// reprocessed cleanly.
func (d *DB) ClearMessageLeads(messageID int) error {
	_, err := d.conn.Exec(`DELETE FROM leads WHERE messageId = ?`, messageID)
	return err
}

func (d *DB) InsertLead(messageID int, lead internal.LeadResult) error {
	skipped := 0
	if lead.Skipped {
		skipped = 1
	}
	_, err := d.conn.Exec(`
INSERT INTO leads (messageId, lineNo, source, firstName, lastName, companyName, email, phone, skipped, matchStatus, clientStatus, dateStatus)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, messageID, lead.LineNo, string(lead.Source), lead.Fields.FirstName, lead.Fields.LastName, lead.Fields.CompanyName,
		lead.Email, lead.Phone, skipped, lead.MatchStatus, lead.ClientStatus, lead.DateStatus)
	return err
}

func (d *DB) GetLeads(messageID int) ([]internal.LeadResult, error) {
	rows, err := d.conn.Query(`
SELECT lineNo, source, firstName, lastName, companyName, email, phone, skipped, matchStatus, clientStatus, dateStatus
FROM leads WHERE messageId = ? ORDER BY lineNo ASC
`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.LeadResult
	for rows.Next() {
		var lead internal.LeadResult
		var source string
		var skipped int
		var email, phone, matchStatus, clientStatus, dateStatus sql.NullString
		if err := rows.Scan(&lead.LineNo, &source, &lead.Fields.FirstName, &lead.Fields.LastName, &lead.Fields.CompanyName,
			&email, &phone, &skipped, &matchStatus, &clientStatus, &dateStatus); err != nil {
			return nil, err
		}
		lead.Source = internal.LeadSource(source)
		lead.Email = email.String
		lead.Phone = phone.String
		lead.Skipped = skipped != 0
		lead.MatchStatus = matchStatus.String
		lead.ClientStatus = clientStatus.String
		lead.DateStatus = dateStatus.String
		out = append(out, lead)
	}
	return out, rows.Err()
}

// InsertRun records one pipeline run. messageID 0 means the run did not
// originate from a mail message (direct upload or one-shot check).
func (d *DB) InsertRun(traceID string, messageID int, source string, counts map[string]int, outputRef string) error {
	countsJSON, _ := json.Marshal(counts)
	var msgID any
	if messageID > 0 {
		msgID = messageID
	}
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, messageId, source, countsJson, outputRef) VALUES (?, ?, ?, ?, ?)`,
		traceID, msgID, source, string(countsJSON), outputRef)
	return err
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
