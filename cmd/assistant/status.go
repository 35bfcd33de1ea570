package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"doc_assistant/internal/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status <id> <unread|read|archived>",
	Short: "Set a record's reading status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, ok := domain.ParseReadingStatus(args[1])
		if !ok {
			return fmt.Errorf("unknown reading status %q (unread, read, archived)", args[1])
		}
		if err := newStore().SetReadingStatus(cmd.Context(), args[0], rs, time.Time{}); err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", args[0], rs)
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive a record (propagates remotely on the next sync)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newStore().SetArchived(cmd.Context(), args[0], true, time.Time{}); err != nil {
			return err
		}
		fmt.Printf("archived %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, archiveCmd)
}
