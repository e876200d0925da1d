package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"newsrag/internal/chunker"
	"newsrag/internal/config"
	"newsrag/internal/domain"
	"newsrag/internal/embedding"
	"newsrag/internal/embedding/gemini"
	"newsrag/internal/gate"
	"newsrag/internal/generation"
	"newsrag/internal/logging"
	"newsrag/internal/pipeline"
	"newsrag/internal/session"
	"newsrag/internal/source"
	"newsrag/internal/tui"
	"newsrag/internal/vectorindex/memory"
	"newsrag/internal/vectorindex/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string

	rootCmd := &cobra.Command{
		Use:   "newsrag",
		Short: "News retrieval-augmented chat assistant",
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (defaults to ./newsrag.yaml, then ~/.config/newsrag/config.yaml)")

	rootCmd.AddCommand(
		newIngestCmd(&cfgPath, false),
		newIngestCmd(&cfgPath, true),
		newAskCmd(&cfgPath),
		newChatCmd(&cfgPath),
		newStatusCmd(&cfgPath),
		newProbeCmd(&cfgPath),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles the wired components one command run needs.
type app struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	index  domain.VectorIndex
	embed  domain.Embedder
}

func buildApp(ctx context.Context, cfgPath string) (*app, error) {
	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, err
	}

	var remote embedding.RemoteEmbedder
	switch cfg.Embedding.Provider {
	case "gemini", "":
		if key := os.Getenv(cfg.Embedding.APIKeyEnv); key != "" {
			client, err := gemini.NewClient(ctx, gemini.Config{APIKey: key, Model: cfg.Embedding.Model})
			if err != nil {
				return nil, err
			}
			remote = client
		} else {
			logger.Warn("embedding API key not set, using deterministic local fallback",
				zap.String("env", cfg.Embedding.APIKeyEnv),
			)
		}
	case "fallback":
		// remote stays nil; every batch takes the degraded path.
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
	embedder, err := embedding.NewProvider(remote, cfg.Embedding.CacheSize, logger.Named("embedding"))
	if err != nil {
		return nil, err
	}

	var index domain.VectorIndex
	switch cfg.Index.Type {
	case "qdrant", "":
		index, err = qdrant.New(qdrant.Config{
			Host:       cfg.Index.Qdrant.Host,
			Port:       cfg.Index.Qdrant.Port,
			Collection: cfg.Index.Qdrant.Collection,
		}, logger.Named("qdrant"))
		if err != nil {
			return nil, err
		}
	case "memory":
		index = memory.New()
	default:
		return nil, fmt.Errorf("unknown index type: %s", cfg.Index.Type)
	}

	return &app{cfg: cfg, logger: logger, index: index, embed: embedder}, nil
}

func (a *app) newIngestor() (*pipeline.Ingestor, error) {
	ch, err := chunker.New(a.cfg.Chunker.MaxLength, a.cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}
	throttle := time.Duration(a.cfg.Ingest.ThrottleMs) * time.Millisecond
	return pipeline.NewIngestor(ch, a.embed, a.index, throttle, a.logger.Named("ingest")), nil
}

func (a *app) newGenerator(ctx context.Context) (domain.Generator, error) {
	key := os.Getenv(a.cfg.Generation.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("generation requires %s to be set", a.cfg.Generation.APIKeyEnv)
	}
	caller, err := generation.NewGeminiCaller(ctx, key, a.cfg.Generation.Model, generation.Params{
		Temperature:     a.cfg.Generation.Temperature,
		TopK:            a.cfg.Generation.TopK,
		TopP:            a.cfg.Generation.TopP,
		MaxOutputTokens: a.cfg.Generation.MaxOutputTokens,
	})
	if err != nil {
		return nil, err
	}
	return generation.NewClient(caller, a.logger.Named("generation")), nil
}

func (a *app) newQuerier(ctx context.Context) (*pipeline.Querier, error) {
	gen, err := a.newGenerator(ctx)
	if err != nil {
		return nil, err
	}
	g := gate.New(a.cfg.Gate.Threshold)
	return pipeline.NewQuerier(a.embed, a.index, g, gen, a.logger.Named("query")), nil
}

func newIngestCmd(cfgPath *string, reindex bool) *cobra.Command {
	use, short := "ingest [files...]", "Chunk, embed, and index documents"
	if reindex {
		use, short = "reindex [files...]", "Clear the index, then ingest documents"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			docs, err := source.Load(args)
			if err != nil {
				return err
			}
			ing, err := a.newIngestor()
			if err != nil {
				return err
			}
			if reindex {
				if err := a.index.EnsureCollection(ctx, a.embed.Dimension()); err != nil {
					return err
				}
				if err := a.index.Clear(ctx); err != nil {
					return err
				}
			}
			summary, err := ing.Ingest(ctx, docs)
			if err != nil {
				return err
			}
			fmt.Printf("Indexed %d chunks from %d documents (%d entries total).\n",
				summary.ChunkCount, summary.DocumentCount, summary.IndexStats.EntryCount)
			return nil
		},
	}
	return cmd
}

func newAskCmd(cfgPath *string) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question from the indexed news",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			q, err := a.newQuerier(ctx)
			if err != nil {
				return err
			}
			outcome := q.Query(ctx, args[0], topK)
			fmt.Println(outcome.AnswerText)
			for i, s := range outcome.Sources {
				fmt.Printf("\n  [%d] %s (score %.2f)\n", i+1, s.Title, s.Score)
				if s.URL != "" {
					fmt.Printf("      %s\n", s.URL)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", pipeline.DefaultTopK, "number of chunks to retrieve")
	return cmd
}

func newChatCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat over the indexed news",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			q, err := a.newQuerier(ctx)
			if err != nil {
				return err
			}
			sessions, err := session.NewStore(
				a.cfg.Session.Capacity,
				time.Duration(a.cfg.Session.TTLMinutes)*time.Minute,
			)
			if err != nil {
				return err
			}
			m := tui.New(q, sessions)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

func newStatusCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			if err := a.index.EnsureCollection(ctx, a.embed.Dimension()); err != nil {
				return err
			}
			stats, err := a.index.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Index entries: %d\n", stats.EntryCount)
			return nil
		},
	}
}

func newProbeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check the generative model is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			gen, err := a.newGenerator(ctx)
			if err != nil {
				return err
			}
			reply, err := gen.TestConnection(ctx)
			if err != nil {
				return fmt.Errorf("model unreachable: %w", err)
			}
			fmt.Println(reply)
			return nil
		},
	}
}
