package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Yates-Labs/carebridge/internal/orchestrator"
	"github.com/Yates-Labs/carebridge/internal/patient"
	"github.com/Yates-Labs/carebridge/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the receptionist and clinical HTTP API",
	Long: `Load the reference corpus and patient records, then serve:

  POST /receptionist   identify a patient by name or ID
  POST /clinical       answer a question for an identified patient
  GET  /health         liveness
  GET  /config         whether a generative model is configured

The process refuses to start if the reference corpus cannot be loaded.

Environment variables:
  CORPUS_SOURCE      - file (default) or milvus
  CORPUS_PATH        - corpus JSON file (default: data/reference_embeddings.json)
  PATIENT_STORE      - dir (default) or sqlite
  OPENAI_API_KEY     - enables generative answers
  WEB_SEARCH_ENABLED - set to false to disable the web fallback
  REDIS_ADDR         - optional web search cache`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default $HTTP_HOST or 0.0.0.0)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default $HTTP_PORT or 5000)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, flush, err := newLogger()
	if err != nil {
		return err
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := orchestrator.DefaultConfig()
	pipeline, _, err := orchestrator.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start clinical pipeline", zap.Error(err))
		return fmt.Errorf("startup failed: %w", err)
	}
	defer pipeline.Close()

	patients, err := patient.Open(patient.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to open patient store: %w", err)
	}
	defer patients.Close()

	srvCfg := server.DefaultConfig()
	if serveHost != "" {
		srvCfg.Host = serveHost
	}
	if servePort > 0 {
		srvCfg.Port = servePort
	}

	srv, err := server.New(server.Deps{
		Patients:         patients,
		Clinician:        pipeline,
		OpenAIConfigured: cfg.LLM.Configured(),
		Model:            cfg.LLM.Model,
	}, srvCfg, logger)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
