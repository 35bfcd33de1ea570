package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"doc_assistant/internal/domain"
	"doc_assistant/internal/store"
)

var (
	listStatus  string
	listReading string
	listTag     string
	listSort    string
	listAsc     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List library records",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := store.ListFilter{
			Status:        domain.ProcessingStatus(listStatus),
			ReadingStatus: domain.ReadingStatus(listReading),
			Tag:           listTag,
			SortBy:        listSort,
			Ascending:     listAsc,
		}
		records, err := newStore().List(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no records")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tREADING\tTAGS\tADDED")
		for _, rec := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				rec.ID(),
				truncate(rec.Title, 50),
				rec.Status,
				rec.ReadingStatus,
				strings.Join(rec.Tags, ","),
				rec.AddedAt.Format("2006-01-02"),
			)
		}
		return w.Flush()
	},
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by processing status")
	listCmd.Flags().StringVar(&listReading, "reading", "", "filter by reading status")
	listCmd.Flags().StringVar(&listTag, "tag", "", "filter by tag")
	listCmd.Flags().StringVar(&listSort, "sort", "added", "sort by: added, title, id")
	listCmd.Flags().BoolVar(&listAsc, "asc", false, "sort ascending")
	rootCmd.AddCommand(listCmd)
}
