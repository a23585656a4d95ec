package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// FileRecord is one registered upload.
type FileRecord struct {
	FileID           string    `json:"file_id"`
	FileName         string    `json:"filename"`
	ContentType      string    `json:"content_type"`
	SizeBytes        int64     `json:"size_bytes"`
	FileHash         string    `json:"file_hash"`
	StoredPath       string    `json:"stored_path"`
	ExtractedDocPath string    `json:"extracted_doc_path,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS files (
	file_id            TEXT PRIMARY KEY,
	filename           TEXT NOT NULL,
	content_type       TEXT NOT NULL DEFAULT '',
	size_bytes         INTEGER NOT NULL,
	file_hash          TEXT NOT NULL,
	stored_path        TEXT NOT NULL,
	extracted_doc_path TEXT NOT NULL DEFAULT '',
	created_at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_files_created ON files(created_at);
`

// Registry records uploads and where their extraction results live.
type Registry struct {
	db *sql.DB
}

// OpenRegistry opens (creating if needed) the SQLite registry at path.
func OpenRegistry(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Registry{db: db}, nil
}

func (r *Registry) Close() error { return r.db.Close() }

func (r *Registry) Create(ctx context.Context, rec FileRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO files (file_id, filename, content_type, size_bytes, file_hash, stored_path, extracted_doc_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FileID, rec.FileName, rec.ContentType, rec.SizeBytes, rec.FileHash,
		rec.StoredPath, rec.ExtractedDocPath, rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert file %s: %w", rec.FileID, err)
	}
	return nil
}

func (r *Registry) Get(ctx context.Context, fileID string) (FileRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT file_id, filename, content_type, size_bytes, file_hash, stored_path, extracted_doc_path, created_at
		 FROM files WHERE file_id = ?`, fileID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FileRecord{}, fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	if err != nil {
		return FileRecord{}, fmt.Errorf("get file %s: %w", fileID, err)
	}
	return rec, nil
}

// SetExtractedPath records where the extraction result for fileID lives.
func (r *Registry) SetExtractedPath(ctx context.Context, fileID, path string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE files SET extracted_doc_path = ? WHERE file_id = ?`, path, fileID)
	if err != nil {
		return fmt.Errorf("update file %s: %w", fileID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	return nil
}

// List returns the newest records first. A limit of zero or less returns
// all records.
func (r *Registry) List(ctx context.Context, limit int) ([]FileRecord, error) {
	q := `SELECT file_id, filename, content_type, size_bytes, file_hash, stored_path, extracted_doc_path, created_at
	      FROM files ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (FileRecord, error) {
	var (
		rec     FileRecord
		created int64
	)
	err := s.Scan(&rec.FileID, &rec.FileName, &rec.ContentType, &rec.SizeBytes,
		&rec.FileHash, &rec.StoredPath, &rec.ExtractedDocPath, &created)
	if err != nil {
		return FileRecord{}, err
	}
	rec.CreatedAt = time.Unix(0, created)
	return rec, nil
}
