package patient

import (
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	seedNames = []string{
		"John Smith", "Rohit Kumar", "Anita Sharma", "Priya Patel", "Arjun Rao",
		"Fatima Khan", "Liu Wei", "Carlos Diaz", "Maria Silva", "Asha Nair",
	}
	seedDiagnoses = []string{
		"Chronic Kidney Disease Stage 3",
		"Acute Kidney Injury",
		"Nephrotic Syndrome",
		"Hypertensive Nephrosclerosis",
	}
	seedMedications = [][]string{
		{"Lisinopril 10mg daily", "Furosemide 20mg daily"},
		{"Amlodipine 5mg daily"},
		{"Prednisone 20mg daily"},
	}
	seedFirstDischarge = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

// DefaultSeedCount is how many dummy patients the seed command creates.
const DefaultSeedCount = 30

// Generate returns n dummy records P001..Pnnn. The same seed always yields
// the same records.
func Generate(n int, seed uint64) []Record {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	records := make([]Record, 0, n)
	for i := 1; i <= n; i++ {
		meds := seedMedications[rng.IntN(len(seedMedications))]
		records = append(records, Record{
			PatientID:             fmt.Sprintf("P%03d", i),
			PatientName:           fmt.Sprintf("%s %d", seedNames[rng.IntN(len(seedNames))], i),
			DischargeDate:         seedFirstDischarge.AddDate(0, 0, rng.IntN(701)).Format(time.DateOnly),
			PrimaryDiagnosis:      seedDiagnoses[rng.IntN(len(seedDiagnoses))],
			Medications:           append([]string(nil), meds...),
			DietaryRestrictions:   "Low sodium, fluid restriction 1.5L/day",
			FollowUp:              "Nephrology clinic in 2 weeks",
			WarningSigns:          "Swelling, shortness of breath, decreased urine output",
			DischargeInstructions: "Monitor blood pressure daily; weigh yourself daily.",
		})
	}
	return records
}
