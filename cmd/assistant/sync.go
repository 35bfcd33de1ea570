package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"doc_assistant/internal/domain"
	"doc_assistant/internal/service"
)

var (
	syncDryRun bool
	syncOnlyID string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the local library with the remote database",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine(newStore())
		if err != nil {
			return err
		}
		report, err := engine.Sync(cmd.Context(), service.Options{
			DryRun: syncDryRun,
			OnlyID: syncOnlyID,
		})
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

func printReport(r *domain.SyncReport) {
	verb := "applied"
	if r.DryRun {
		verb = "planned"
	}
	for _, o := range r.Outcomes {
		if o.Action == domain.ActionNone && o.Detail == "in sync" {
			continue
		}
		line := fmt.Sprintf("  %-18s %s", o.Action, o.ID)
		if o.Status == domain.OutcomeError || o.Status == domain.OutcomeWarning {
			line += fmt.Sprintf("  [%s] %s", o.Status, o.Detail)
		}
		fmt.Println(line)
	}
	fmt.Printf("%s: %d created remotely, %d updated remotely, %d archived remotely, "+
		"%d created locally, %d updated locally, %d archived locally, %d skipped\n",
		verb, r.RemoteCreated, r.RemoteUpdated, r.RemoteArchived,
		r.LocalCreated, r.LocalUpdated, r.LocalArchived, r.Skipped)
	for _, w := range r.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, e := range r.Errors {
		fmt.Printf("error: %s\n", e)
	}
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "plan and report without writing to either side")
	syncCmd.Flags().StringVar(&syncOnlyID, "id", "", "sync only the given record id")
	rootCmd.AddCommand(syncCmd)
}
