package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/preptrack/core/cmd/preptrack/commands"
)

// @title PrepTrack API
// @version 1.0
// @description Coding interview preparation tracker

// @host localhost:8575
// @BasePath /api/v1

func main() {
	rootCmd := &cobra.Command{
		Use:   "preptrack",
		Short: "PrepTrack API Server",
		Long:  `PrepTrack tracks coding interview preparation: topics, problems, study sessions, and derived progress, persisted to a single JSON document.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewStatsCommand())
	rootCmd.AddCommand(commands.NewDatabaseCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
