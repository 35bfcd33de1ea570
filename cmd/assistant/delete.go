package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteKeepFiles bool

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a record locally (never touches the remote side)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newStore().Delete(cmd.Context(), args[0], !deleteKeepFiles); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteKeepFiles, "keep-files", false, "keep summary/audio/source files on disk")
	rootCmd.AddCommand(deleteCmd)
}
