package commands

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/preptrack/core/internal/adapters/repository"
	"github.com/preptrack/core/internal/application/services"
	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/config"
	"github.com/preptrack/core/internal/infrastructure/docstore"
	"github.com/preptrack/core/internal/infrastructure/logger"
	"github.com/preptrack/core/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the PrepTrack API server",
		Long:  "Start the PrepTrack API server with all configured routes and middleware",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print a progress summary",
		Long:  "Print overall completion, per-status and per-difficulty breakdowns, and total study time",
		Run: func(cmd *cobra.Command, args []string) {
			showStats()
		},
	}
}

// NewDatabaseCommand creates the database management command
func NewDatabaseCommand() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Document file commands",
		Long:  "Inspect and switch the active progress document",
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the active document path",
		Run: func(cmd *cobra.Command, args []string) {
			showDatabasePath()
		},
	})

	dbCmd.AddCommand(&cobra.Command{
		Use:   "switch <path>",
		Short: "Switch to another document file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			switchDatabase(args[0])
		},
	})

	return dbCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print PrepTrack version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("PrepTrack Core v1.0.0")
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	store, err := docstore.Open(cfg.Storage, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open document store", "error", err)
	}
	defer store.Close()

	srv, err := server.New(cfg, store, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize server", "error", err)
	}

	appLogger.Info("Starting PrepTrack API server",
		"port", cfg.Server.Port,
		"document", store.Path(),
		"environment", cfg.App.Environment,
	)

	if err := srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)); err != nil {
		appLogger.Fatal("Server failed to start", "error", err)
	}
}

func showStats() {
	store := openStore()
	defer store.Close()

	quiet := logger.NewNop()
	topicRepo := repository.NewTopicRepository(store)
	problemRepo := repository.NewProblemRepository(store)
	sessionRepo := repository.NewSessionRepository(store)
	progressService := services.NewProgressService(topicRepo, problemRepo, sessionRepo, quiet)

	ctx := context.Background()
	progress, err := progressService.Overview(ctx)
	if err != nil {
		log.Fatalf("Failed to compute progress: %v", err)
	}

	fmt.Printf("Document: %s\n\n", store.Path())
	fmt.Printf("Topics:    %d\n", progress.TopicsCount)
	fmt.Printf("Problems:  %d (%d completed, %.1f%%)\n",
		progress.TotalProblems, progress.CompletedProblems, progress.CompletionRate)
	fmt.Printf("Sessions:  %d (%d minutes studied)\n\n", progress.TotalSessions, progress.TotalStudyMinutes)

	fmt.Println("By status:")
	for _, st := range entities.AllStatuses() {
		fmt.Printf("  %-12s %d\n", st, progress.ByStatus[st])
	}

	fmt.Println("By difficulty:")
	for _, d := range entities.AllDifficulties() {
		fmt.Printf("  %-12s %d\n", d, progress.ByDifficulty[d])
	}
}

func showDatabasePath() {
	store := openStore()
	defer store.Close()

	fmt.Println(store.Path())
}

func switchDatabase(path string) {
	store := openStore()
	defer store.Close()

	if err := store.Switch(path); err != nil {
		log.Fatalf("Failed to switch document: %v", err)
	}

	fmt.Printf("Active document is now %s\n", store.Path())
}

func openStore() *docstore.Store {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := docstore.Open(cfg.Storage, logger.NewNop())
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}

	return store
}
