package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/guidechat-ai/guidechat/internal/embedder"
	"github.com/guidechat-ai/guidechat/internal/ingestion"
	"github.com/guidechat-ai/guidechat/internal/logging"
)

// NewIndexCmd constructs the `guidechat index` command, which runs the guide
// ingestion pipeline without starting the HTTP server.
func NewIndexCmd() *cobra.Command {
	var dataDir string
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index guide documents into the vector store",
		Long: `Extract, chunk, embed, and persist the guide documents for every
configured category.

Documents are discovered at <data-dir>/<category>_guide.pdf, .txt or .md.
Categories with an existing persisted store are skipped unless --force is
given; categories with no guide document are skipped with a warning.

Required environment variables depend on the embedding provider:
  EMBEDDING_PROVIDER   huggingface (default), openai, ollama
  HF_TOKEN             Hugging Face API token (huggingface provider)
  EMBEDDING_API_KEY    Overrides the provider-specific key
  STORE_BACKEND        file (default) or qdrant

Examples:
  guidechat index
  guidechat index --force
  guidechat index --data-dir ./guides`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			embedder.Validate(log)
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("index: failed to initialise embedder: %w", err)
			}

			store, _, closeStore, err := buildStore(emb, log)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			defer closeStore()

			if dataDir == "" {
				dataDir = getEnvOrDefault("STORE_DATA_DIR", "data")
			}

			pipeline, err := ingestion.NewPipeline(store, newChunker(), ingestion.Config{
				DataDir: dataDir,
				Force:   force,
			})
			if err != nil {
				return fmt.Errorf("index: failed to create pipeline: %w", err)
			}

			if err := pipeline.Run(ctx); err != nil {
				return fmt.Errorf("index: %w", err)
			}

			log.Info("indexing complete", slog.String("data_dir", dataDir))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "Directory holding the guide documents (default: STORE_DATA_DIR or ./data)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Reindex categories that are already trained")

	return cmd
}
