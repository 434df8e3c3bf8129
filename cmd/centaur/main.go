// Centaur is a Telegram assistant that routes employees to the right
// colleague. It forwards text and voice messages to an OpenAI assistant,
// answers with contact cards from an organizational CSV directory and
// collects feedback on its suggestions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jkonratt/centaur/internal/assistant"
	"github.com/jkonratt/centaur/internal/bot"
	"github.com/jkonratt/centaur/internal/contacts"
	"github.com/jkonratt/centaur/internal/store"
	"github.com/jkonratt/centaur/internal/util"
	"github.com/jkonratt/centaur/internal/voice"
)

const (
	// DefaultStateDir is the default directory for Centaur state data
	DefaultStateDir = "/var/lib/centaur"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "centaur.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	if err := run(config, flags); err != nil {
		slog.Error("Centaur failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Centaur exited successfully")
}

func run(config Config, flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(*flags.dbDSN, *flags.stateDir)
	if err != nil {
		return fmt.Errorf("failed to open conversation store: %w", err)
	}
	defer st.Close()

	contactStore, err := contacts.Load(*flags.contactsCSV)
	if err != nil {
		return fmt.Errorf("failed to load contact directory: %w", err)
	}
	slog.Info("main.run: contact directory loaded", "path", *flags.contactsCSV, "contacts", contactStore.Len())

	tool := assistant.NewContactTool(contactStore)
	provider, err := assistant.NewOpenAIProvider(ctx, tool.GetToolDefinition(),
		assistant.WithAPIKey(*flags.openaiKey),
		assistant.WithModel(*flags.model),
		assistant.WithInstructionsFile(*flags.instructions),
	)
	if err != nil {
		return fmt.Errorf("failed to create assistant provider: %w", err)
	}

	engine := assistant.NewEngine(provider, st, []assistant.ToolExecutor{tool},
		assistant.WithTurnTimeout(config.TurnTimeout),
	)

	transcriber, err := voice.NewOpenAITranscriber(*flags.openaiKey)
	if err != nil {
		return fmt.Errorf("failed to create transcriber: %w", err)
	}

	telegramBot, err := bot.New(engine, transcriber, contactStore,
		bot.WithToken(*flags.telegramToken),
		bot.WithDomain(*flags.emailDomain),
		bot.WithRedirectBaseURL(config.RedirectBaseURL),
		bot.WithBotLink(config.BotLink),
		bot.WithDebug(util.ParseBoolEnv("TELEGRAM_DEBUG", false)),
	)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if err := telegramBot.Start(ctx); err != nil {
		return fmt.Errorf("failed to start Telegram bot: %w", err)
	}
	slog.Info("main.run: Centaur is running")

	<-ctx.Done()
	slog.Info("main.run: shutdown signal received")
	telegramBot.Stop()
	return nil
}

// openStore selects the conversation store backend from the DSN.
func openStore(dsn, stateDir string) (store.Store, error) {
	if dsn == "" {
		slog.Warn("main.openStore: no DSN configured, conversation state will not survive restarts")
		return store.NewInMemoryStore(), nil
	}
	switch store.DetectDSNType(dsn) {
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(dsn))
	default:
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
		return store.NewSQLiteStore(store.WithDSN(dsn))
	}
}

// Config holds environment configuration
type Config struct {
	TelegramToken   string
	OpenAIKey       string
	Model           string
	EmailDomain     string
	ContactsCSV     string
	Instructions    string
	DatabaseURL     string
	StateDir        string
	RedirectBaseURL string
	BotLink         string
	TurnTimeout     time.Duration
}

// Flags holds command line flag values
type Flags struct {
	telegramToken *string
	openaiKey     *string
	model         *string
	emailDomain   *string
	contactsCSV   *string
	instructions  *string
	dbDSN         *string
	stateDir      *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		Model:           os.Getenv("OPENAI_MODEL"),
		EmailDomain:     os.Getenv("CONTACT_EMAIL_DOMAIN"),
		ContactsCSV:     os.Getenv("CONTACTS_CSV"),
		Instructions:    os.Getenv("ASSISTANT_INSTRUCTIONS"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StateDir:        os.Getenv("CENTAUR_STATE_DIR"),
		RedirectBaseURL: os.Getenv("REDIRECT_BASE_URL"),
		BotLink:         os.Getenv("BOT_LINK"),
		TurnTimeout:     util.ParseDurationEnv("TURN_TIMEOUT", assistant.DefaultTurnTimeout),
	}

	if config.Model == "" {
		config.Model = assistant.DefaultModel
	}
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CENTAUR_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.ContactsCSV == "" {
		config.ContactsCSV = filepath.Join("res", "data.csv")
	}
	if config.Instructions == "" {
		config.Instructions = filepath.Join("res", "instruction.txt")
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"TELEGRAM_BOT_TOKEN_SET", config.TelegramToken != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.Model,
		"CONTACT_EMAIL_DOMAIN", config.EmailDomain,
		"CONTACTS_CSV", config.ContactsCSV,
		"ASSISTANT_INSTRUCTIONS", config.Instructions,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"CENTAUR_STATE_DIR", config.StateDir,
		"TURN_TIMEOUT", config.TurnTimeout)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		telegramToken: flag.String("telegram-token", config.TelegramToken, "Telegram bot token (overrides $TELEGRAM_BOT_TOKEN)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		model:         flag.String("model", config.Model, "OpenAI model for the assistant (overrides $OPENAI_MODEL)"),
		emailDomain:   flag.String("email-domain", config.EmailDomain, "organizational email domain for contact detection (overrides $CONTACT_EMAIL_DOMAIN)"),
		contactsCSV:   flag.String("contacts-csv", config.ContactsCSV, "path to the contact directory CSV (overrides $CONTACTS_CSV)"),
		instructions:  flag.String("instructions", config.Instructions, "path to the assistant instructions file (overrides $ASSISTANT_INSTRUCTIONS)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN for the conversation store (overrides $DATABASE_URL)"),
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for Centaur data (overrides $CENTAUR_STATE_DIR)"),
	}

	flag.Parse()

	// A custom state dir moves the default SQLite file along with it.
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
	}

	return flags
}
