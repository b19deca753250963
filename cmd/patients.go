package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Yates-Labs/carebridge/internal/patient"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	seedCount   int
	seedValue   uint64
	storeFlag   string
	seedDataDir string
	seedDBPath  string
)

var patientsCmd = &cobra.Command{
	Use:   "patients",
	Short: "Look up or generate patient discharge records",
}

var patientsFindCmd = &cobra.Command{
	Use:   "find [name or patient-id]",
	Short: "Identify a patient the way the receptionist does",
	Long: `Identify a patient by ID (e.g. P001, case-insensitive) or by a fragment of
their name, and print the receptionist reply.

Examples:
  carebridge patients find p001
  carebridge patients find "john smith"`,
	Args: cobra.ExactArgs(1),
	RunE: runPatientsFind,
}

var patientsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write dummy discharge records",
	Long: `Generate dummy nephrology discharge records P001..Pnnn and write them to the
patient store. The same --seed always produces the same records.

Examples:
  carebridge patients seed
  carebridge patients seed --count 50 --seed 7 --store sqlite`,
	Args: cobra.NoArgs,
	RunE: runPatientsSeed,
}

func init() {
	rootCmd.AddCommand(patientsCmd)
	patientsCmd.AddCommand(patientsFindCmd, patientsSeedCmd)

	patientsCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Patient store: dir or sqlite (default $PATIENT_STORE or dir)")
	patientsCmd.PersistentFlags().StringVar(&seedDataDir, "data-dir", "", "Directory of patient JSON files (default $PATIENT_DATA_DIR)")
	patientsCmd.PersistentFlags().StringVar(&seedDBPath, "db", "", "SQLite database path (default $PATIENT_DB)")

	patientsSeedCmd.Flags().IntVar(&seedCount, "count", patient.DefaultSeedCount, "Number of records to generate")
	patientsSeedCmd.Flags().Uint64Var(&seedValue, "seed", 42, "Random seed")
}

func patientConfig() patient.Config {
	cfg := patient.DefaultConfig()
	if storeFlag != "" {
		cfg.Backend = storeFlag
	}
	if seedDataDir != "" {
		cfg.DataDir = seedDataDir
	}
	if seedDBPath != "" {
		cfg.DBPath = seedDBPath
	}
	return cfg
}

func runPatientsFind(cmd *cobra.Command, args []string) error {
	logger, flush, err := newLogger()
	if err != nil {
		return err
	}
	defer flush()

	store, err := patient.Open(patientConfig())
	if err != nil {
		return fmt.Errorf("failed to open patient store: %w", err)
	}
	defer store.Close()

	reply, err := patient.NewReceptionist(store, logger).Identify(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	fmt.Println(bodyStyle.Render(reply.Text))
	if len(reply.Matches) > 0 {
		fmt.Println()
		outputMatches(reply.Matches)
	}
	return nil
}

func runPatientsSeed(cmd *cobra.Command, args []string) error {
	if seedCount <= 0 {
		return fmt.Errorf("--count must be positive")
	}

	store, err := patient.Open(patientConfig())
	if err != nil {
		return fmt.Errorf("failed to open patient store: %w", err)
	}
	defer store.Close()

	records := patient.Generate(seedCount, seedValue)
	if err := store.Save(context.Background(), records); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Created %d dummy patients", len(records))))
	return nil
}

func outputMatches(matches []patient.Match) {
	const (
		idWidth   = 10
		nameWidth = 32
	)

	cellHeader := headerStyle.Padding(0, 1)
	fmt.Println(strings.Join([]string{
		cellHeader.Width(idWidth).Render("ID"),
		cellHeader.Width(nameWidth).Render("NAME"),
	}, borderStyle.Render("│")))
	fmt.Println(borderStyle.Render(strings.Repeat("─", idWidth) + "┼" + strings.Repeat("─", nameWidth)))

	idStyle := lipgloss.NewStyle().Foreground(idColor).Padding(0, 1).Width(idWidth)
	nameStyle := lipgloss.NewStyle().Foreground(numberColor).Padding(0, 1).Width(nameWidth)
	for _, m := range matches {
		fmt.Println(strings.Join([]string{
			idStyle.Render(m.PatientID),
			nameStyle.Render(m.PatientName),
		}, borderStyle.Render("│")))
	}
}
