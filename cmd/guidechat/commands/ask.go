package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guidechat-ai/guidechat/internal/assistant"
	"github.com/guidechat-ai/guidechat/internal/embedder"
	"github.com/guidechat-ai/guidechat/internal/history"
	"github.com/guidechat-ai/guidechat/internal/ingestion"
	"github.com/guidechat-ai/guidechat/internal/logging"
	"github.com/guidechat-ai/guidechat/internal/provider"
	"github.com/guidechat-ai/guidechat/internal/rag"
)

// NewAskCmd constructs the `guidechat ask` command, which answers a single
// question from the indexed guides and streams the response to stdout.
func NewAskCmd() *cobra.Command {
	var category string
	var stream bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about a guide",
		Long: `Ask a natural language question about an indexed guide category.

The answer is grounded in the guide's retrieved passages. With --stream it
is written to stdout as it is generated. Categories without an indexed
guide are indexed first (same as serve startup).

Examples:
  guidechat ask "how do I submit a leave request?"
  guidechat ask --stream "how do I submit a leave request?"
  guidechat ask --category erp "where do I approve purchase orders?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			store, _, closeStore, err := buildStore(emb, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer closeStore()

			// Load persisted collections, indexing any untrained category.
			pipeline, err := ingestion.NewPipeline(store, newChunker(), ingestion.Config{
				DataDir: getEnvOrDefault("STORE_DATA_DIR", "data"),
			})
			if err != nil {
				return fmt.Errorf("ask: failed to create pipeline: %w", err)
			}
			if err := pipeline.Run(ctx); err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			cats := store.Categories()
			if len(cats) == 0 {
				return fmt.Errorf("ask: no guide categories configured")
			}
			cat := rag.Category(category)
			if cat == "" {
				cat = cats[0]
			}

			// Record the exchange in the same history store the server uses.
			var historyStore *history.Store
			dbPath := os.Getenv("GUIDECHAT_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, _ = history.DefaultDBPath()
				}
				if dbPath != "" {
					if hs, hsErr := history.Open(dbPath); hsErr == nil {
						historyStore = hs
						defer func() { _ = hs.Close() }()
					}
				}
			}

			chat := assistant.New(store, assistant.NewGenerator(chatModel), historyStore)

			question := args[0]
			if stream {
				if _, err := chat.QueryStream(ctx, question, cat, os.Stdout); err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				fmt.Println()
				return nil
			}

			answer, err := chat.Query(ctx, question, cat)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			fmt.Println(answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Guide category to query (default: first configured category)")
	cmd.Flags().BoolVarP(&stream, "stream", "s", false, "Stream the answer to stdout as it is generated")

	return cmd
}
