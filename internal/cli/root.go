// Package cli implements the engram CLI commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meshmind/engram/internal/archive"
)

var (
	dbPath  string
	verbose bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "engram",
	Short: "Long-term memory substrate for a distributed learning network",
	Long:  "Distills unit telemetry into memory capsules, stores them in an indexed vector memory, and anchors every capsule in a credit ledger. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $ENGRAM_DB or ~/.engram/engram.db)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log component activity to stderr")
	RootCmd.PersistentFlags().StringP("origin", "o", "local", "Producing cluster identifier")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("ENGRAM_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".engram", "engram.db")
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// openState opens the archive and restores the substrate. Callers must
// Close the archive; mutating commands should saveState before closing.
func openState(ctx context.Context, cmd *cobra.Command) (*archive.Archive, *archive.State, error) {
	org, _ := cmd.Flags().GetString("origin")
	a, err := archive.Open(getDBPath())
	if err != nil {
		return nil, nil, err
	}
	st, err := a.Load(ctx, time.Now().UTC(), org, newLogger())
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, st, nil
}

func saveState(ctx context.Context, a *archive.Archive, st *archive.State) {
	if err := a.Save(ctx, st); err != nil {
		exitErr("save state", err)
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
