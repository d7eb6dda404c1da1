package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/guidechat-ai/guidechat/internal/assistant"
	"github.com/guidechat-ai/guidechat/internal/embedder"
	"github.com/guidechat-ai/guidechat/internal/history"
	"github.com/guidechat-ai/guidechat/internal/ingestion"
	"github.com/guidechat-ai/guidechat/internal/logging"
	"github.com/guidechat-ai/guidechat/internal/provider"
	"github.com/guidechat-ai/guidechat/internal/server"
	"github.com/guidechat-ai/guidechat/internal/tracing"
)

// NewServeCmd constructs the `guidechat serve` command, which indexes any
// untrained guide categories and starts the HTTP chat API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the GuideChat HTTP API",
		Long: `Start the GuideChat HTTP server.

On startup the server indexes any guide categories that have no persisted
vector store yet (place documents at <data-dir>/<category>_guide.pdf, .txt
or .md), then serves the chat API: blocking queries on /api/chat/query and
SSE-streamed answers on /api/chat/query-stream.

Examples:
  guidechat serve
  guidechat serve --port 9090
  MODEL_PROVIDER=ollama guidechat serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			embedder.Validate(log)
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			store, pingers, closeStore, err := buildStore(emb, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeStore()

			// Index any categories without a trained collection. A failed
			// category is skipped, not fatal — the API reports it as
			// untrained and the remaining categories still serve.
			pipeline, err := ingestion.NewPipeline(store, newChunker(), ingestion.Config{
				DataDir: getEnvOrDefault("STORE_DATA_DIR", "data"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create ingestion pipeline: %w", err)
			}
			if err := pipeline.Run(ctx); err != nil {
				log.Warn("startup indexing incomplete", slog.Any("error", err))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "groq")))

			// Open query history store. GUIDECHAT_HISTORY_DB overrides the
			// default path (~/.guidechat/history.db). Set to "disabled" to
			// turn persistence off.
			var historyStore *history.Store
			dbPath := os.Getenv("GUIDECHAT_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = history.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := history.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						historyStore = hs
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via GUIDECHAT_HISTORY_DB=disabled")
			}

			chat := assistant.New(store, assistant.NewGenerator(chatModel), historyStore)

			pingers = append(pingers,
				server.NewEmbedderPinger(emb, getEnvOrDefault("EMBEDDING_PROVIDER", "huggingface")),
				server.NewModelPinger(chatModel, getEnvOrDefault("MODEL_PROVIDER", "groq")),
			)

			// Flags win over env; server.New fills the final defaults.
			if host == "" {
				host = os.Getenv("GUIDECHAT_HOST")
			}
			if port == 0 {
				port = getEnvInt("GUIDECHAT_PORT", 0)
			}

			cfg := &server.Config{
				Host:      host,
				Port:      port,
				Logger:    log,
				Pingers:   pingers,
				RateLimit: float64(getEnvInt("GUIDECHAT_RATE_LIMIT", 0)),
				RateBurst: getEnvInt("GUIDECHAT_RATE_BURST", 0),
				APIKey:    os.Getenv("GUIDECHAT_API_KEY"),
			}

			var srv *server.Server
			if historyStore != nil {
				srv, err = server.New(chat, store, historyStore, cfg)
			} else {
				srv, err = server.New(chat, store, nil, cfg)
			}
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host address to bind to (default: GUIDECHAT_HOST or 127.0.0.1)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (default: GUIDECHAT_PORT or 3000)")

	return cmd
}
