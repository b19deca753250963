// Package patient holds discharge records, the stores that serve them and
// the receptionist that identifies a patient from a free-text message.
package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Yates-Labs/carebridge/internal/config"
)

var (
	ErrNotFound      = errors.New("patient not found")
	ErrUnknownStore  = errors.New("unknown patient store")
	ErrInvalidRecord = errors.New("invalid patient record")
)

// Record is one post-discharge report.
type Record struct {
	PatientID             string   `json:"patient_id"`
	PatientName           string   `json:"patient_name"`
	DischargeDate         string   `json:"discharge_date"`
	PrimaryDiagnosis      string   `json:"primary_diagnosis"`
	Medications           []string `json:"medications"`
	DietaryRestrictions   string   `json:"dietary_restrictions"`
	FollowUp              string   `json:"follow_up"`
	WarningSigns          string   `json:"warning_signs"`
	DischargeInstructions string   `json:"discharge_instructions"`
}

// Summary is the patient context handed to the clinical pipeline.
func (r Record) Summary() string {
	return fmt.Sprintf("Name: %s. Primary diagnosis: %s. Discharge instructions: %s",
		r.PatientName, r.PrimaryDiagnosis, r.DischargeInstructions)
}

func (r Record) validate() error {
	if strings.TrimSpace(r.PatientID) == "" {
		return fmt.Errorf("%w: missing patient_id", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.PatientName) == "" {
		return fmt.Errorf("%w: %s has no patient_name", ErrInvalidRecord, r.PatientID)
	}
	return nil
}

// Store looks up patient records.
type Store interface {
	// FindByID returns ErrNotFound when no record has exactly this id.
	FindByID(ctx context.Context, id string) (*Record, error)

	// FindByName returns records whose name contains name, case-insensitively,
	// ordered by patient id.
	FindByName(ctx context.Context, name string) ([]Record, error)
}

// Saver persists records, replacing any with the same id.
type Saver interface {
	Save(ctx context.Context, records []Record) error
}

// Config selects the patient store backend.
type Config struct {
	// Backend is "dir" (one JSON file per patient) or "sqlite"
	Backend string
	DataDir string
	DBPath  string
}

// DefaultConfig reads PATIENT_STORE, PATIENT_DATA_DIR and PATIENT_DB.
func DefaultConfig() Config {
	return Config{
		Backend: config.String("PATIENT_STORE", "dir"),
		DataDir: config.String("PATIENT_DATA_DIR", "data/patients"),
		DBPath:  config.String("PATIENT_DB", "data/patients.db"),
	}
}

// Backend is a Store that can also be written to and closed.
type Backend interface {
	Store
	Saver
	Close() error
}

// Open returns the configured backend.
func Open(cfg Config) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "dir":
		return NewDirStore(cfg.DataDir)
	case "sqlite":
		return NewSQLiteStore(cfg.DBPath)
	default:
		return nil, fmt.Errorf("%w: %q (want dir or sqlite)", ErrUnknownStore, cfg.Backend)
	}
}
