package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
	// ErrAlreadyTargeted: the statement is targeted by another contestation
	// in the same case. One contestation per statement per case.
	ErrAlreadyTargeted = errors.New("statement already targeted by another contestation")
)

// Store is the single persistence handle injected into every service.
type Store struct {
	DB *sql.DB
}

func Open(path string) (*Store, error) {
	// _txlock=immediate: every transaction takes the write lock at BEGIN.
	// This is what serializes exhibit refreshes for the same case.
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", path, err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY churn at
	// interactive load.
	db.SetMaxOpenConns(1)

	s := &Store{DB: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// WithTx runs fn inside a transaction, rolling back on error.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// dbtx lets the same query helpers run on the pool or inside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const timeLayout = time.RFC3339

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimeNull(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func (s *Store) migrate() error {
	_, err := s.DB.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS protagonists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS protagonist_emails (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	protagonist_id INTEGER NOT NULL REFERENCES protagonists(id) ON DELETE CASCADE,
	address TEXT NOT NULL COLLATE NOCASE UNIQUE
);

CREATE TABLE IF NOT EXISTS email_threads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	thread_id TEXT NOT NULL UNIQUE,
	subject TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS emails (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	thread_pk INTEGER NOT NULL REFERENCES email_threads(id) ON DELETE CASCADE,
	message_id TEXT NOT NULL UNIQUE,
	subject TEXT NOT NULL DEFAULT '',
	sender_raw TEXT NOT NULL DEFAULT '',
	to_raw TEXT NOT NULL DEFAULT '',
	cc_raw TEXT NOT NULL DEFAULT '',
	bcc_raw TEXT NOT NULL DEFAULT '',
	date_sent TEXT NOT NULL,
	body_text TEXT NOT NULL DEFAULT '',
	eml_path TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	in_reply_to TEXT NOT NULL DEFAULT '',
	references_hdr TEXT NOT NULL DEFAULT '',
	sender_protagonist_id INTEGER REFERENCES protagonists(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS email_recipients (
	email_id INTEGER NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
	protagonist_id INTEGER NOT NULL REFERENCES protagonists(id) ON DELETE CASCADE,
	PRIMARY KEY (email_id, protagonist_id)
);

CREATE TABLE IF NOT EXISTS email_quotes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email_id INTEGER NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
	quote_text TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pdf_documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	author_protagonist_id INTEGER REFERENCES protagonists(id) ON DELETE SET NULL,
	document_date TEXT,
	doc_type TEXT NOT NULL DEFAULT '',
	file_path TEXT NOT NULL DEFAULT '',
	uploaded_at TEXT NOT NULL,
	ai_analysis TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS pdf_quotes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pdf_document_id INTEGER NOT NULL REFERENCES pdf_documents(id) ON DELETE CASCADE,
	quote_text TEXT NOT NULL,
	page_number INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS photos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path TEXT NOT NULL UNIQUE,
	file TEXT NOT NULL DEFAULT '',
	datetime_original TEXT,
	datetime_utc TEXT,
	camera_make TEXT NOT NULL DEFAULT '',
	camera_model TEXT NOT NULL DEFAULT '',
	iso INTEGER NOT NULL DEFAULT 0,
	exposure_time TEXT NOT NULL DEFAULT '',
	f_number TEXT NOT NULL DEFAULT '',
	focal_length TEXT NOT NULL DEFAULT '',
	lens_model TEXT NOT NULL DEFAULT '',
	gps_latitude REAL,
	gps_longitude REAL,
	metadata_json TEXT NOT NULL DEFAULT '{}',
	photo_type_id INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS photo_documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	author_protagonist_id INTEGER REFERENCES protagonists(id) ON DELETE SET NULL,
	ai_analysis TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS photo_document_photos (
	photo_document_id INTEGER NOT NULL REFERENCES photo_documents(id) ON DELETE CASCADE,
	photo_id INTEGER NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
	position INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (photo_document_id, photo_id)
);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	explanation TEXT NOT NULL DEFAULT '',
	parent_event_id INTEGER REFERENCES events(id) ON DELETE SET NULL,
	allegation_node_id INTEGER REFERENCES library_nodes(id) ON DELETE SET NULL,
	email_id INTEGER REFERENCES emails(id) ON DELETE SET NULL,
	email_quote TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS event_photos (
	event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	photo_id INTEGER NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
	PRIMARY KEY (event_id, photo_id)
);

CREATE TABLE IF NOT EXISTS chat_participants (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	raw_identity TEXT NOT NULL UNIQUE,
	protagonist_id INTEGER REFERENCES protagonists(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	participant_id INTEGER NOT NULL REFERENCES chat_participants(id),
	timestamp TEXT NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	topic_id TEXT NOT NULL DEFAULT '',
	raw_json TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS chat_sequences (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL DEFAULT '',
	start_date TEXT,
	end_date TEXT,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_sequence_messages (
	sequence_id INTEGER NOT NULL REFERENCES chat_sequences(id) ON DELETE CASCADE,
	message_id INTEGER NOT NULL REFERENCES chat_messages(id) ON DELETE CASCADE,
	position INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (sequence_id, message_id)
);

CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	source_type TEXT NOT NULL CHECK (source_type IN ('REPRODUCED','PRODUCED')),
	author_protagonist_id INTEGER REFERENCES protagonists(id) ON DELETE SET NULL,
	original_date TEXT,
	solemn_declaration TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS statements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	is_true INTEGER NOT NULL DEFAULT 1,
	is_falsifiable INTEGER NOT NULL DEFAULT 0,
	is_user_created INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	CHECK (NOT (is_true = 1 AND is_falsifiable = 1))
);

CREATE TABLE IF NOT EXISTS library_nodes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	path TEXT NOT NULL,
	depth INTEGER NOT NULL,
	item TEXT NOT NULL DEFAULT '',
	content_kind TEXT NOT NULL,
	content_id INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (document_id, path)
);
CREATE INDEX IF NOT EXISTS idx_library_nodes_content ON library_nodes(content_kind, content_id);

CREATE TABLE IF NOT EXISTS narratives (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	type_argument TEXT NOT NULL CHECK (type_argument IN ('CONTRADICTION','SUPPORT')),
	ai_analysis_json TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS narrative_targeted_statements (
	narrative_id INTEGER NOT NULL REFERENCES narratives(id) ON DELETE CASCADE,
	statement_id INTEGER NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
	PRIMARY KEY (narrative_id, statement_id)
);

CREATE TABLE IF NOT EXISTS narrative_source_statements (
	narrative_id INTEGER NOT NULL REFERENCES narratives(id) ON DELETE CASCADE,
	statement_id INTEGER NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
	PRIMARY KEY (narrative_id, statement_id)
);

CREATE TABLE IF NOT EXISTS narrative_events (
	narrative_id INTEGER NOT NULL REFERENCES narratives(id) ON DELETE CASCADE,
	event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	PRIMARY KEY (narrative_id, event_id)
);

CREATE TABLE IF NOT EXISTS narrative_email_quotes (
	narrative_id INTEGER NOT NULL REFERENCES narratives(id) ON DELETE CASCADE,
	email_quote_id INTEGER NOT NULL REFERENCES email_quotes(id) ON DELETE CASCADE,
	PRIMARY KEY (narrative_id, email_quote_id)
);

CREATE TABLE IF NOT EXISTS narrative_pdf_quotes (
	narrative_id INTEGER NOT NULL REFERENCES narratives(id) ON DELETE CASCADE,
	pdf_quote_id INTEGER NOT NULL REFERENCES pdf_quotes(id) ON DELETE CASCADE,
	PRIMARY KEY (narrative_id, pdf_quote_id)
);

CREATE TABLE IF NOT EXISTS narrative_photo_documents (
	narrative_id INTEGER NOT NULL REFERENCES narratives(id) ON DELETE CASCADE,
	photo_document_id INTEGER NOT NULL REFERENCES photo_documents(id) ON DELETE CASCADE,
	PRIMARY KEY (narrative_id, photo_document_id)
);

CREATE TABLE IF NOT EXISTS narrative_chat_sequences (
	narrative_id INTEGER NOT NULL REFERENCES narratives(id) ON DELETE CASCADE,
	chat_sequence_id INTEGER NOT NULL REFERENCES chat_sequences(id) ON DELETE CASCADE,
	PRIMARY KEY (narrative_id, chat_sequence_id)
);

CREATE TABLE IF NOT EXISTS legal_cases (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS contestations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id INTEGER NOT NULL REFERENCES legal_cases(id) ON DELETE CASCADE,
	title TEXT NOT NULL DEFAULT '',
	section_declaration TEXT NOT NULL DEFAULT '',
	section_proof TEXT NOT NULL DEFAULT '',
	section_mens_rea TEXT NOT NULL DEFAULT '',
	section_intent TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS contestation_targeted_statements (
	contestation_id INTEGER NOT NULL REFERENCES contestations(id) ON DELETE CASCADE,
	statement_id INTEGER NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
	PRIMARY KEY (contestation_id, statement_id)
);

CREATE TABLE IF NOT EXISTS contestation_narratives (
	contestation_id INTEGER NOT NULL REFERENCES contestations(id) ON DELETE CASCADE,
	narrative_id INTEGER NOT NULL REFERENCES narratives(id) ON DELETE CASCADE,
	PRIMARY KEY (contestation_id, narrative_id)
);

CREATE TABLE IF NOT EXISTS exhibit_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id INTEGER NOT NULL REFERENCES legal_cases(id) ON DELETE CASCADE,
	content_kind TEXT NOT NULL,
	content_id INTEGER NOT NULL,
	exhibit_number INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (case_id, content_kind, content_id),
	UNIQUE (case_id, exhibit_number)
);

CREATE TABLE IF NOT EXISTS ai_suggestions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	contestation_id INTEGER NOT NULL REFERENCES contestations(id) ON DELETE CASCADE,
	raw_response TEXT NOT NULL DEFAULT '',
	content_json TEXT NOT NULL DEFAULT '{}',
	parsing_success INTEGER NOT NULL DEFAULT 0,
	model_version TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
`
