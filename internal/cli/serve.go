package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ramavio/paperchat/internal/agent"
	"github.com/ramavio/paperchat/internal/config"
	"github.com/ramavio/paperchat/internal/gateway"
	"github.com/ramavio/paperchat/internal/llm"
	"github.com/ramavio/paperchat/internal/logging"
	"github.com/ramavio/paperchat/internal/repository"
	"github.com/ramavio/paperchat/internal/store"
)

// stepPacing is the delay between observable search steps, so the streamed
// updates read as progress rather than a burst.
const stepPacing = 500 * time.Millisecond

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the paperchat web service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				log.Debug().Msg("no .env file found, using environment variables")
			}

			path := cfgFile
			if path == "" {
				path = "./paperchat.yaml"
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			if logLevel == "" {
				log = logging.New(nil, cfg.Logging.Level)
			}

			if cfg.LLM.APIKey == "" || cfg.LLM.APIKey == "${GEMINI_API_KEY}" {
				return fmt.Errorf("no LLM API key configured (set GEMINI_API_KEY or llm.apiKey)")
			}

			db, err := store.Open(cfg.Store.Path, log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			client := llm.NewGeminiClient(cfg.LLM.APIKey, cfg.LLM.Model, llm.WithTimeout(cfg.LLM.SendTimeout))
			registry := agent.NewRegistry(client, agent.DirPromptLoader{Dir: cfg.Prompts.Dir}, log)
			repo := repository.New(cfg.Repository, log)
			orchestrator := agent.NewOrchestrator(registry, repo, agent.OrchestratorConfig{
				MaxRounds:   cfg.Search.MaxRounds,
				SendTimeout: cfg.LLM.SendTimeout,
				Pacing:      stepPacing,
			}, log)

			srv := gateway.New(cfg.Server, gateway.Deps{
				Users:        store.NewUserStore(db),
				Chats:        store.NewChatStore(db),
				Papers:       store.NewPaperStore(db),
				Registry:     registry,
				Orchestrator: orchestrator,
				Fetcher:      repo,
			}, log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info().
				Str("model", cfg.LLM.Model).
				Str("repository", cfg.Repository.BaseURL).
				Msg("starting paperchat")
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	cmd.Flags().StringVar(&bind, "bind", "", "listen host (overrides config)")

	return cmd
}
