package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/aide/agent"
	"github.com/hrygo/aide/ai/llm"
	"github.com/hrygo/aide/calendar"
	"github.com/hrygo/aide/calendar/google"
	"github.com/hrygo/aide/calendar/local"
	"github.com/hrygo/aide/feedback"
	"github.com/hrygo/aide/ingest"
	"github.com/hrygo/aide/internal/profile"
	"github.com/hrygo/aide/internal/version"
	"github.com/hrygo/aide/server"
	"github.com/hrygo/aide/store"
	"github.com/hrygo/aide/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "aide",
	Short: `A conversational calendar assistant. Chat to create, modify, cancel and respond to events; let the background ingester file appointments from your inbox.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := run(ctx, cancel, instanceProfile); err != nil {
			slog.Error("failed to start", "error", err)
			os.Exit(1)
		}
	},
}

func run(ctx context.Context, cancel context.CancelFunc, instanceProfile *profile.Profile) error {
	llmService, err := llm.NewService(&llm.Config{
		Provider: instanceProfile.LLMProvider,
		Model:    instanceProfile.LLMModel,
		APIKey:   instanceProfile.LLMAPIKey,
		BaseURL:  instanceProfile.LLMBaseURL,
		Timeout:  instanceProfile.LLMTimeout,
	})
	if err != nil {
		return err
	}

	provider, cleanup, err := newCalendarProvider(ctx, instanceProfile)
	if err != nil {
		return err
	}
	defer cleanup()

	ledger := feedback.NewLedger(instanceProfile.FeedbackLogPath())
	executor := agent.NewExecutor(provider, ledger)
	system := agent.NewSystemContext(provider, ledger)
	engine := agent.NewEngine(llmService, executor, system, ledger)

	s := server.NewServer(instanceProfile, engine)

	c := make(chan os.Signal, 1)
	// Trigger graceful shutdown on SIGINT or SIGTERM.
	signal.Notify(c, terminationSignals...)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var channel *server.TelegramChannel
	if instanceProfile.TelegramBotToken != "" {
		channel, err = server.NewTelegramChannel(instanceProfile.TelegramBotToken, engine)
		if err != nil {
			slog.Warn("telegram channel disabled", "error", err)
			channel = nil
		}
	}

	if instanceProfile.IngestEnabled {
		pipeline, err := newIngestPipeline(gctx, instanceProfile, llmService, provider, channel != nil)
		if err != nil {
			slog.Warn("ingestion disabled", "error", err)
		} else {
			g.Go(func() error {
				err := pipeline.Run(gctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
	}

	if channel != nil {
		g.Go(func() error {
			err := channel.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	printGreetings(instanceProfile)

	go func() {
		<-c
		s.Shutdown(ctx)
		cancel()
	}()

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
	return nil
}

func newCalendarProvider(ctx context.Context, p *profile.Profile) (calendar.Provider, func(), error) {
	switch p.CalendarProvider {
	case "google":
		provider, err := google.NewProvider(ctx, p.CredentialsFile, p.TokenFile)
		if err != nil {
			return nil, nil, err
		}
		return provider, func() {}, nil
	default:
		dbDriver, err := db.NewDBDriver(p)
		if err != nil {
			return nil, nil, err
		}
		storeInstance := store.New(dbDriver, p)
		if err := storeInstance.Migrate(ctx); err != nil {
			_ = storeInstance.Close()
			return nil, nil, err
		}
		cleanup := func() {
			if err := storeInstance.Close(); err != nil {
				slog.Error("failed to close store", "error", err)
			}
		}
		return local.NewProvider(storeInstance), cleanup, nil
	}
}

// telegramIngestAllowed reports whether the ingestion pipeline may poll
// the bot's getUpdates endpoint. Telegram serves one getUpdates consumer
// per token; a second poller gets 409 Conflict and the two race for
// updates, so the chat channel takes precedence.
func telegramIngestAllowed(p *profile.Profile, channelActive bool) bool {
	return p.IncludeTelegram && p.TelegramBotToken != "" && !channelActive
}

func newIngestPipeline(ctx context.Context, p *profile.Profile, llmService llm.Service, provider calendar.Provider, telegramChannelActive bool) (*ingest.Pipeline, error) {
	var sources []ingest.Source

	if p.IncludeGmail {
		gmail, err := ingest.NewGmailSource(ctx, p.CredentialsFile, p.TokenFile)
		if err != nil {
			slog.Warn("gmail source disabled", "error", err)
		} else {
			sources = append(sources, gmail)
		}
	}
	if p.IncludeTelegram && p.TelegramBotToken != "" && telegramChannelActive {
		slog.Warn("telegram ingest source disabled: the chat channel owns the bot's update stream")
	}
	if telegramIngestAllowed(p, telegramChannelActive) {
		telegram, err := ingest.NewTelegramSource(p.TelegramBotToken)
		if err != nil {
			slog.Warn("telegram source disabled", "error", err)
		} else {
			sources = append(sources, telegram)
		}
	}
	if len(sources) == 0 {
		return nil, errors.New("no ingestion sources available")
	}

	marker := ingest.NewMarker(p.MarkerPath())
	lookback := time.Duration(p.LookbackDays) * 24 * time.Hour
	interval := time.Duration(p.IngestInterval) * time.Second
	return ingest.NewPipeline(llmService, provider, marker, sources, lookback, interval), nil
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28090)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28090, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("aide")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("Aide %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Calendar provider: %s\n", profile.CalendarProvider)
	fmt.Printf("Mode: %s\n", profile.Mode)

	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
