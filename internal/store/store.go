// Package store persists nutrition label records and their edit history
// in a local SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gather-kitchen/nutrition-label-server/internal/types"
)

// Record is a saved nutrition analysis for one dish. Components holds
// the serialized ingredient breakdown as produced by the label service.
type Record struct {
	ID         string                    `json:"id"`
	DishName   string                    `json:"dishName"`
	Label      *types.NutritionLabelData `json:"label"`
	Components json.RawMessage           `json:"components,omitempty"`
	CreatedAt  time.Time                 `json:"createdAt"`
	UpdatedAt  time.Time                 `json:"updatedAt"`
}

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS records (
        id TEXT PRIMARY KEY,
        dish_name TEXT NOT NULL,
        label TEXT NOT NULL,
        components TEXT,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS audit_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        record_id TEXT NOT NULL,
        kind TEXT NOT NULL,
        occurred_at DATETIME NOT NULL,
        event TEXT NOT NULL,
        FOREIGN KEY (record_id) REFERENCES records(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_records_dish_name ON records(dish_name);
    CREATE INDEX IF NOT EXISTS idx_audit_log_record_id ON audit_log(record_id);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveRecord inserts a new record and returns its ID. An empty ID is
// filled in with a fresh UUID.
func (s *Store) SaveRecord(record *Record) (string, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	labelJSON, err := json.Marshal(record.Label)
	if err != nil {
		return "", fmt.Errorf("failed to marshal label: %w", err)
	}

	query := `
        INSERT INTO records (id, dish_name, label, components, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	_, err = s.db.Exec(query,
		record.ID, record.DishName, string(labelJSON), string(record.Components),
		record.CreatedAt.Format(time.RFC3339), record.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to insert record: %w", err)
	}

	return record.ID, nil
}

// UpdateLabel replaces a record's label and appends the edit event that
// produced the change, in one transaction.
func (s *Store) UpdateLabel(recordID string, label *types.NutritionLabelData, event *types.EditEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	labelJSON, err := json.Marshal(label)
	if err != nil {
		return fmt.Errorf("failed to marshal label: %w", err)
	}

	res, err := tx.Exec(
		`UPDATE records SET label = ?, updated_at = ? WHERE id = ?`,
		string(labelJSON), time.Now().UTC().Format(time.RFC3339), recordID)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record not found: %s", recordID)
	}

	if event != nil {
		if err := appendEvent(tx, recordID, event); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func appendEvent(tx *sql.Tx, recordID string, event *types.EditEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO audit_log (record_id, kind, occurred_at, event) VALUES (?, ?, ?, ?)`,
		recordID, string(event.Kind), event.At.Format(time.RFC3339), string(eventJSON))
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// GetRecord loads a single record by ID.
func (s *Store) GetRecord(recordID string) (*Record, error) {
	row := s.db.QueryRow(
		`SELECT id, dish_name, label, components, created_at, updated_at FROM records WHERE id = ?`,
		recordID)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record not found: %s", recordID)
	}
	return record, err
}

// ListRecords returns the most recently updated records.
func (s *Store) ListRecords(limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, dish_name, label, components, created_at, updated_at
         FROM records ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	record := &Record{}
	var labelJSON, componentsJSON string
	var createdAtStr, updatedAtStr string

	err := row.Scan(&record.ID, &record.DishName, &labelJSON, &componentsJSON,
		&createdAtStr, &updatedAtStr)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(labelJSON), &record.Label); err != nil {
		return nil, fmt.Errorf("failed to parse label: %w", err)
	}
	if componentsJSON != "" {
		record.Components = json.RawMessage(componentsJSON)
	}
	if record.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if record.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return record, nil
}

// Events returns a record's edit history, oldest first.
func (s *Store) Events(recordID string) ([]types.EditEvent, error) {
	rows, err := s.db.Query(
		`SELECT event FROM audit_log WHERE record_id = ? ORDER BY id`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var events []types.EditEvent
	for rows.Next() {
		var eventJSON string
		if err := rows.Scan(&eventJSON); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		var event types.EditEvent
		if err := json.Unmarshal([]byte(eventJSON), &event); err != nil {
			return nil, fmt.Errorf("failed to parse audit event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
