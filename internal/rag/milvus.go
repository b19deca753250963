package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Yates-Labs/carebridge/internal/config"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Common errors for Milvus operations
var (
	ErrConnectionFailed = errors.New("failed to connect to Milvus")
	ErrInsertFailed     = errors.New("failed to insert records")
	ErrCollectionAbsent = errors.New("corpus collection does not exist")
)

const (
	fieldChunkID   = "chunk_id"
	fieldText      = "text"
	fieldEmbedding = "embedding"

	// Chunk ids read per query.
	queryPageSize = 1000
)

// MilvusConfig holds configuration for Milvus connection and collection
type MilvusConfig struct {
	Address        string // Milvus server address (e.g., "localhost:19530")
	CollectionName string // Name of the collection

	// HNSW index parameters
	M              int // HNSW M parameter (default: 16)
	EfConstruction int // HNSW efConstruction (default: 256)
}

// DefaultMilvusConfig returns default configuration from environment variables
func DefaultMilvusConfig() MilvusConfig {
	return MilvusConfig{
		Address:        config.String("MILVUS_ADDRESS", "localhost:19530"),
		CollectionName: config.String("MILVUS_COLLECTION", "reference_chunks"),
		M:              16,
		EfConstruction: 256,
	}
}

// MilvusSource loads the reference corpus from a Milvus collection. The
// embedding model is kept in the collection description.
type MilvusSource struct {
	Config MilvusConfig
}

// Load connects, reads every chunk ordered by chunk_id, and disconnects.
func (s MilvusSource) Load(ctx context.Context) (*Corpus, error) {
	c, err := client.NewGrpcClient(ctx, s.Config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer c.Close()

	return loadCorpusFromMilvus(ctx, c, s.Config.CollectionName)
}

func loadCorpusFromMilvus(ctx context.Context, c client.Client, collection string) (*Corpus, error) {
	has, err := c.HasCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrCollectionAbsent, collection)
	}

	coll, err := c.DescribeCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to describe collection: %w", err)
	}
	dimension, err := vectorDimension(coll.Schema)
	if err != nil {
		return nil, err
	}

	if err := c.LoadCollection(ctx, collection, false); err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}

	type row struct {
		id   int64
		text string
		vec  []float32
	}
	var rows []row

	// Chunk ids are contiguous from 0, so pages are id windows rather than
	// offsets; Milvus caps offset+limit at its query result window.
	for lo := int64(0); ; lo += queryPageSize {
		results, err := c.Query(
			ctx,
			collection,
			nil, // partition names
			pageExpr(lo, queryPageSize),
			[]string{fieldChunkID, fieldText, fieldEmbedding},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query corpus: %w", err)
		}

		var ids []int64
		var texts []string
		var vectors [][]float32
		for _, column := range results {
			switch col := column.(type) {
			case *entity.ColumnInt64:
				if col.Name() == fieldChunkID {
					ids = col.Data()
				}
			case *entity.ColumnVarChar:
				if col.Name() == fieldText {
					texts = col.Data()
				}
			case *entity.ColumnFloatVector:
				if col.Name() == fieldEmbedding {
					vectors = col.Data()
				}
			}
		}
		if len(ids) != len(texts) || len(ids) != len(vectors) {
			return nil, fmt.Errorf("%w: milvus returned ragged columns", ErrMalformedCorpus)
		}
		for i := range ids {
			rows = append(rows, row{id: ids[i], text: texts[i], vec: vectors[i]})
		}
		if len(ids) == 0 {
			break
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })

	corpus := &Corpus{
		Model:     strings.TrimSpace(coll.Schema.Description),
		Dimension: dimension,
		Chunks:    make([]Chunk, len(rows)),
	}
	for i, r := range rows {
		corpus.Chunks[i] = Chunk{ID: int(r.id), Text: r.text, Embedding: r.vec}
	}

	if err := corpus.Validate(); err != nil {
		return nil, err
	}
	return corpus, nil
}

// pageExpr selects chunk ids in [lo, lo+size).
func pageExpr(lo, size int64) string {
	return fmt.Sprintf("%s >= %d && %s < %d", fieldChunkID, lo, fieldChunkID, lo+size)
}

func vectorDimension(schema *entity.Schema) (int, error) {
	if schema == nil {
		return 0, fmt.Errorf("%w: collection has no schema", ErrMalformedCorpus)
	}
	for _, f := range schema.Fields {
		if f.Name == fieldEmbedding {
			var dim int
			if _, err := fmt.Sscanf(f.TypeParams["dim"], "%d", &dim); err != nil {
				return 0, fmt.Errorf("%w: unreadable vector dimension: %v", ErrMalformedCorpus, err)
			}
			return dim, nil
		}
	}
	return 0, fmt.Errorf("%w: no %s field", ErrMalformedCorpus, fieldEmbedding)
}

// MilvusWriter publishes a corpus to Milvus for MilvusSource to read back.
type MilvusWriter struct {
	Config MilvusConfig
}

// Write replaces the configured collection with corpus.
func (w MilvusWriter) Write(ctx context.Context, corpus *Corpus) error {
	if err := corpus.Validate(); err != nil {
		return err
	}

	c, err := client.NewGrpcClient(ctx, w.Config.Address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer c.Close()

	name := w.Config.CollectionName
	has, err := c.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if has {
		if err := c.DropCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to drop existing collection: %w", err)
		}
	}

	schema := &entity.Schema{
		CollectionName: name,
		Description:    corpus.Model,
		AutoID:         false,
		Fields: []*entity.Field{
			{
				Name:       fieldChunkID,
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     fieldText,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     fieldEmbedding,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", corpus.Dimension),
				},
			},
		},
	}

	if err := c.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	ids := make([]int64, len(corpus.Chunks))
	texts := make([]string, len(corpus.Chunks))
	vectors := make([][]float32, len(corpus.Chunks))
	for i, ch := range corpus.Chunks {
		ids[i] = int64(ch.ID)
		texts[i] = ch.Text
		vectors[i] = ch.Embedding
	}

	columns := []entity.Column{
		entity.NewColumnInt64(fieldChunkID, ids),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnFloatVector(fieldEmbedding, corpus.Dimension, vectors),
	}
	if _, err := c.Insert(ctx, name, "", columns...); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	// Flush to ensure data is persisted
	if err := c.Flush(ctx, name, false); err != nil {
		return fmt.Errorf("failed to flush data: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, w.Config.M, w.Config.EfConstruction)
	if err != nil {
		return fmt.Errorf("failed to create index config: %w", err)
	}
	if err := c.CreateIndex(ctx, name, fieldEmbedding, idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}
