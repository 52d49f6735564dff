package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	showStats bool
)

var rootCmd = &cobra.Command{
	Use:   "taskflow",
	Short: "TaskFlow: projects, members and a kanban task board",
	Long:  "TaskFlow is a command-line client for the TaskFlow backend. It manages the login session, projects and their members, and a three-column task board.",

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults plus TASKFLOW_* env)")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "print backend request metrics when the command finishes")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
