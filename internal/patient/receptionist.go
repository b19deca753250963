package patient

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Yates-Labs/carebridge/internal/logging"
	"go.uber.org/zap"
)

// Receptionist replies.
const (
	GreetingText      = "Hello! Please tell me your full name or patient ID to find your discharge summary."
	NoNameMatchText   = "No patient found matching that name. Please check spelling or provide patient ID."
	MultipleMatchText = "Multiple matches found. Please reply with patient ID to select one."
)

var patientIDPattern = regexp.MustCompile(`^[Pp][0-9]+$`)

// Match is one candidate offered when a name is ambiguous.
type Match struct {
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`
}

// Reply is the receptionist's answer. Patient is set when exactly one record
// was identified; Matches when the name was ambiguous.
type Reply struct {
	Text    string
	Patient *Record
	Matches []Match
}

// Receptionist identifies the patient a message refers to.
type Receptionist struct {
	store  Store
	logger *zap.Logger
}

// NewReceptionist creates a receptionist over store.
func NewReceptionist(store Store, logger *zap.Logger) *Receptionist {
	return &Receptionist{store: store, logger: logging.OrNop(logger)}
}

// Identify treats message as a patient id ("P001", any case) or a name
// fragment. Only store failures are returned as errors.
func (r *Receptionist) Identify(ctx context.Context, message string) (Reply, error) {
	candidate := strings.TrimSpace(message)
	r.logger.Info("receptionist received message", zap.String("message", candidate))

	if len([]rune(candidate)) < 2 {
		return Reply{Text: GreetingText}, nil
	}

	if patientIDPattern.MatchString(candidate) {
		return r.byID(ctx, strings.ToUpper(candidate))
	}
	return r.byName(ctx, candidate)
}

func (r *Receptionist) byID(ctx context.Context, pid string) (Reply, error) {
	rec, err := r.store.FindByID(ctx, pid)
	if errors.Is(err, ErrNotFound) {
		return Reply{Text: fmt.Sprintf("No patient found with ID %s. Please check your ID or provide full name.", pid)}, nil
	}
	if err != nil {
		return Reply{}, err
	}
	text := fmt.Sprintf("Found patient: %s (ID: %s). Primary diagnosis: %s. Discharged on %s. Follow-up: %s",
		rec.PatientName, rec.PatientID, rec.PrimaryDiagnosis, rec.DischargeDate, rec.FollowUp)
	return Reply{Text: text, Patient: rec}, nil
}

func (r *Receptionist) byName(ctx context.Context, name string) (Reply, error) {
	matches, err := r.store.FindByName(ctx, name)
	if err != nil {
		return Reply{}, err
	}
	r.logger.Info("patient name search", zap.String("name", name), zap.Int("found", len(matches)))

	switch len(matches) {
	case 0:
		return Reply{Text: NoNameMatchText}, nil
	case 1:
		rec := matches[0]
		text := fmt.Sprintf("Found patient: %s (ID: %s). Primary diagnosis: %s. Discharged on %s.",
			rec.PatientName, rec.PatientID, rec.PrimaryDiagnosis, rec.DischargeDate)
		return Reply{Text: text, Patient: &rec}, nil
	default:
		options := make([]Match, len(matches))
		for i, m := range matches {
			options[i] = Match{PatientID: m.PatientID, PatientName: m.PatientName}
		}
		return Reply{Text: MultipleMatchText, Matches: options}, nil
	}
}
