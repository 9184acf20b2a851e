package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/invoicevault/invoicevault/internal/config"
	"github.com/invoicevault/invoicevault/internal/database"
	"github.com/invoicevault/invoicevault/internal/ingest"
	"github.com/invoicevault/invoicevault/internal/logging"
	"github.com/invoicevault/invoicevault/internal/maintenance"
	"github.com/invoicevault/invoicevault/internal/web"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	port        int
	bind        string
	allowSubnet string
	dbPath      string
	ingestDir   string
	verbosity   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "invoicevault",
		Short: "Invoicevault - Invoice extraction result store",
		Long:  `Invoicevault persists structured invoice-extraction results (header fields, per-field confidence scores, and line items) and serves them back over a JSON API.`,
		RunE:  run,
	}

	// Flags
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (required, or set PORT env var)")
	rootCmd.Flags().StringVarP(&bind, "bind", "b", "", "IP address to bind to (e.g., 127.0.0.1, 0.0.0.0)")
	rootCmd.Flags().StringVarP(&allowSubnet, "allow-subnet", "a", "", "CIDR subnet allowed to connect (e.g., 192.168.1.0/24)")
	rootCmd.Flags().StringVarP(&dbPath, "db", "d", "./invoicevault.db", "SQLite database path (or set DB_PATH env var)")
	rootCmd.Flags().StringVarP(&ingestDir, "ingest-dir", "i", "", "Drop directory to watch for extraction result files (or set INGEST_DIR env var)")
	rootCmd.Flags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("invoicevault %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Optional .env file for local development
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment from .env file")
	}

	// Check for PORT env var if flag not set
	if port == 0 {
		if envPort := os.Getenv("PORT"); envPort != "" {
			if _, err := fmt.Sscanf(envPort, "%d", &port); err != nil {
				return fmt.Errorf("invalid PORT environment variable %q: %w", envPort, err)
			}
		}
	}

	// Check for DB_PATH env var if using default
	if dbPath == "./invoicevault.db" {
		if envDB := os.Getenv("DB_PATH"); envDB != "" {
			dbPath = envDB
		}
	}

	if ingestDir == "" {
		ingestDir = os.Getenv("INGEST_DIR")
	}

	// Validate port
	if port == 0 {
		return fmt.Errorf("--port flag or PORT environment variable is required")
	}

	// Validate bind address if provided
	if bind != "" {
		if ip := net.ParseIP(bind); ip == nil {
			return fmt.Errorf("invalid bind address: %s", bind)
		}
	}

	// Validate and parse allow-subnet if provided
	var allowedNet *net.IPNet
	if allowSubnet != "" {
		_, parsedNet, err := net.ParseCIDR(allowSubnet)
		if err != nil {
			return fmt.Errorf("invalid allow-subnet CIDR: %s", allowSubnet)
		}
		allowedNet = parsedNet
	}

	setupConsoleLogging(verbosity)

	// Warn if binding to all interfaces without an allow list
	if (bind == "" || bind == "0.0.0.0" || bind == "::") && allowSubnet == "" {
		log.Warn().Msg("Server is accessible from all interfaces without subnet restrictions. Consider using --bind or --allow-subnet.")
	}

	log.Info().
		Str("version", version).
		Int("port", port).
		Str("bind", bind).
		Str("allow_subnet", allowSubnet).
		Str("database", dbPath).
		Str("ingest_dir", ingestDir).
		Msg("Starting Invoicevault")

	// Initialize database
	db, err := database.New(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Seed default settings
	if err := db.InitializeDefaults(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize default settings")
	}

	// Full logging (console + rotating file beside the database)
	loader := config.NewLoader(db)
	logging.Apply(logLevel(loader, verbosity), loader, logging.FilePathForDB(dbPath))

	// Create web server with bind address and allowed subnet
	server := web.NewServer(db, port, bind, allowedNet)

	// Maintenance scheduler
	maintenanceMgr := maintenance.New(db, loader)
	if err := maintenanceMgr.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start maintenance schedule")
	}
	defer maintenanceMgr.Stop()

	// Drop-directory ingest watcher (optional)
	if ingestDir != "" {
		watcher, err := ingest.New(db, ingestDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize ingest watcher")
		}
		if err := watcher.Start(); err != nil {
			log.Fatal().Err(err).Str("dir", ingestDir).Msg("Failed to start ingest watcher")
		}
		defer watcher.Stop()
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}

	log.Info().Msg("Invoicevault stopped")
	return nil
}

// setupConsoleLogging configures minimal console logging until the database
// settings are available.
func setupConsoleLogging(verbosity int) {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}

	switch verbosity {
	case 0:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case 1:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default: // 2+
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// logLevel resolves the effective log level: -v flags beat the stored setting
func logLevel(loader *config.Loader, verbosity int) string {
	switch verbosity {
	case 0:
		return loader.String("log.level", "info")
	case 1:
		return "debug"
	default:
		return "trace"
	}
}
