package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage record tags",
}

var tagsAddCmd = &cobra.Command{
	Use:   "add <id> <tag>...",
	Short: "Add tags to a record",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := newStore().AddTags(cmd.Context(), args[0], args[1:], time.Time{})
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", args[0], strings.Join(tags, ", "))
		return nil
	},
}

var tagsRemoveCmd = &cobra.Command{
	Use:   "remove <id> <tag>",
	Short: "Remove a tag from a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := newStore().RemoveTag(cmd.Context(), args[0], args[1], time.Time{})
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", args[0], strings.Join(tags, ", "))
		return nil
	},
}

func init() {
	tagsCmd.AddCommand(tagsAddCmd, tagsRemoveCmd)
	rootCmd.AddCommand(tagsCmd)
}
