package patient

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS patients (
	patient_id             TEXT PRIMARY KEY,
	patient_name           TEXT NOT NULL,
	discharge_date         TEXT NOT NULL,
	primary_diagnosis      TEXT NOT NULL,
	medications_json       TEXT NOT NULL,
	dietary_restrictions   TEXT NOT NULL,
	follow_up              TEXT NOT NULL,
	warning_signs          TEXT NOT NULL,
	discharge_instructions TEXT NOT NULL
);
`

const selectColumns = `patient_id, patient_name, discharge_date, primary_diagnosis,
	medications_json, dietary_restrictions, follow_up, warning_signs, discharge_instructions`

// SQLiteStore keeps patient records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and runs
// migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var medsJSON string
	err := row.Scan(
		&rec.PatientID, &rec.PatientName, &rec.DischargeDate, &rec.PrimaryDiagnosis,
		&medsJSON, &rec.DietaryRestrictions, &rec.FollowUp, &rec.WarningSigns,
		&rec.DischargeInstructions,
	)
	if err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(medsJSON), &rec.Medications); err != nil {
		return Record{}, fmt.Errorf("%w: medications for %s: %v", ErrInvalidRecord, rec.PatientID, err)
	}
	return rec, nil
}

// FindByID implements Store.
func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM patients WHERE patient_id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query patient: %w", err)
	}
	return &rec, nil
}

// FindByName implements Store. SQLite's lower() folds ASCII only, which
// covers the generated names.
func (s *SQLiteStore) FindByName(ctx context.Context, name string) ([]Record, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM patients
		 WHERE instr(lower(patient_name), ?) > 0
		 ORDER BY patient_id`, needle)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	var matches []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return matches, nil
}

// Save implements Saver in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		if err := rec.validate(); err != nil {
			return err
		}
		meds := rec.Medications
		if meds == nil {
			meds = []string{}
		}
		medsJSON, err := json.Marshal(meds)
		if err != nil {
			return fmt.Errorf("marshal medications: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO patients (`+selectColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.PatientID, rec.PatientName, rec.DischargeDate, rec.PrimaryDiagnosis,
			string(medsJSON), rec.DietaryRestrictions, rec.FollowUp, rec.WarningSigns,
			rec.DischargeInstructions,
		)
		if err != nil {
			return fmt.Errorf("insert %s: %w", rec.PatientID, err)
		}
	}
	return tx.Commit()
}
