package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/app"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/config"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/infra/memory"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/infra/postgres"
	rediscache "github.com/mentisVeritas/tg-bot-answer-checker/internal/infra/redis"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/reminder"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/transport/telegram"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/transport/ws"
)

// NewStartCmd builds the CLI subcommand to start the bot.
func NewStartCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath)
		},
	}
}

func runServer(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var store app.Store
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	} else {
		log.Printf("postgres not configured, using in-memory storage")
		store = memory.NewStore()
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var quizzes app.QuizReader
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		quizzes = rediscache.NewQuizCache(client, store, cacheTTL)
	} else {
		quizzes = memory.NewQuizCache(store, cacheTTL)
	}

	conversations := memory.NewConversationStore()

	var api *tgbotapi.BotAPI
	if cfg.Telegram.Token != "" {
		api, err = tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("telegram auth: %w", err)
		}
	}

	// The ws handler doubles as the reminder channel when no bot token is
	// configured; it is constructed after the engine, so the fallback
	// notifier resolves it through a closure.
	var wsHandler *ws.Handler
	var notifier reminder.Notifier
	if api != nil {
		notifier = telegram.NewNotifier(api)
	} else {
		notifier = reminder.NotifyFunc(func(ctx context.Context, actorID int64, text string) error {
			if wsHandler == nil {
				return fmt.Errorf("no reminder transport available")
			}
			return wsHandler.Notify(ctx, actorID, text)
		})
	}

	scheduler := reminder.NewScheduler(notifier, store, conversations.Active)
	engine := app.NewEngine(store, quizzes, conversations, scheduler, app.Config{
		OwnerID:    cfg.Telegram.OwnerID,
		CodeLength: cfg.Quiz.CodeLength,
		Location:   cfg.Location(),
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	if api != nil {
		bot := telegram.NewBot(api, engine)
		go func() { errCh <- bot.Run(runCtx) }()
	}

	var httpServer *http.Server
	if cfg.WS.Port != "" {
		wsHandler = ws.NewHandler(engine)
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})
		mux.HandleFunc("/ws", wsHandler.ServeWS)
		httpServer = &http.Server{
			Addr:        ":" + cfg.WS.Port,
			Handler:     mux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			log.Printf("ws transport listening on :%s", cfg.WS.Port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	if api == nil && cfg.WS.Port == "" {
		return fmt.Errorf("no transport configured: set telegram.token or ws.port")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down...")
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			return err
		}
	}

	cancel()
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	}
	return nil
}
