package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Yates-Labs/carebridge/internal/answer"
	"github.com/Yates-Labs/carebridge/internal/ingest"
	"github.com/Yates-Labs/carebridge/internal/rag"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ingestOut       string
	ingestModel     string
	ingestDimension int
	ingestBatch     int
	ingestPageBatch int
	ingestMilvus    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [reference.pdf]",
	Short: "Build the reference corpus from a PDF",
	Long: `Extract text from a reference PDF, split it into overlapping chunks, embed
every chunk and write the corpus file the clinical agent loads at startup.

Pages are read in batches of 20; chunks are 900 characters with a 200 character
overlap, and fragments of 50 characters or fewer are dropped.

The default embedder (hash-v1) runs offline. Any other --embedder value is
treated as an OpenAI embedding model and requires OPENAI_API_KEY.

Examples:
  carebridge ingest data/reference/comprehensive-clinical-nephrology.pdf
  carebridge ingest ref.pdf --embedder text-embedding-3-small --dimension 1536
  carebridge ingest ref.pdf --out data/reference_embeddings.json --milvus`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestOut, "out", "data/reference_embeddings.json", "Corpus output file")
	ingestCmd.Flags().StringVar(&ingestModel, "embedder", rag.HashModel, "Embedding model: hash-v1 or an OpenAI embedding model")
	ingestCmd.Flags().IntVar(&ingestDimension, "dimension", 384, "Embedding dimension")
	ingestCmd.Flags().IntVar(&ingestBatch, "batch", rag.DefaultIndexOptions().BatchSize, "Chunks per embedding request")
	ingestCmd.Flags().IntVar(&ingestPageBatch, "page-batch", ingest.DefaultPageBatch, "Pages read per extraction batch")
	ingestCmd.Flags().BoolVar(&ingestMilvus, "milvus", false, "Also publish the corpus to Milvus (MILVUS_ADDRESS, MILVUS_COLLECTION)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := context.Background()

	logger, flush, err := newLogger()
	if err != nil {
		return err
	}
	defer flush()

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("reference document not found: %w", err)
	}

	llmCfg := answer.DefaultLLMConfig()
	embedder, err := rag.NewEmbedder(rag.EmbedderConfig{
		Model:     ingestModel,
		Dimension: ingestDimension,
		APIKey:    llmCfg.APIKey,
		BaseURL:   llmCfg.BaseURL,
		Timeout:   llmCfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	opts := ingest.DefaultOptions()
	opts.PageBatch = ingestPageBatch
	opts.Index.BatchSize = ingestBatch

	corpus, err := ingest.Run(ctx, path, embedder, opts, logger)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if dir := filepath.Dir(ingestOut); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := rag.SaveCorpus(ingestOut, corpus); err != nil {
		return err
	}
	logger.Info("corpus written", zap.String("path", ingestOut))

	if ingestMilvus {
		milvusCfg := rag.DefaultMilvusConfig()
		if err := (rag.MilvusWriter{Config: milvusCfg}).Write(ctx, corpus); err != nil {
			return fmt.Errorf("failed to publish corpus to milvus: %w", err)
		}
		logger.Info("corpus published to milvus",
			zap.String("address", milvusCfg.Address),
			zap.String("collection", milvusCfg.CollectionName),
		)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Embedded %d chunks (%s, %d dims) → %s",
		corpus.Len(), corpus.Model, corpus.Dimension, ingestOut)))
	return nil
}
