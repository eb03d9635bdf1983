package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cookchat-oss/cookchat/internal/config"
	"github.com/cookchat-oss/cookchat/internal/telemetry"
	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect or clear stored sessions",
}

var memoryShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's stored history as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryShow,
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear <session-id>",
	Short: "Clear a session's stored history",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryClear,
}

func init() {
	memoryCmd.AddCommand(memoryShowCmd)
	memoryCmd.AddCommand(memoryClearCmd)
}

func runMemoryShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := telemetry.NewLogger(verbose)
	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	mem, err := store.Load(context.Background(), args[0])
	if err != nil {
		return err
	}
	if mem == nil {
		fmt.Println("no stored history for session", args[0])
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(mem)
}

func runMemoryClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := telemetry.NewLogger(verbose)
	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Println("cleared session", args[0])
	return nil
}
