package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"doc_assistant/internal/service"
)

var (
	addTitle   string
	addAuthors []string
	addTags    []string
)

var addCmd = &cobra.Command{
	Use:   "add <source>",
	Short: "Add a paper or article by arXiv id/URL or web URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ingestor := service.NewIngestor(newStore(), nil, nil, nil, logger)
		rec, err := ingestor.Add(cmd.Context(), service.AddRequest{
			Source:  args[0],
			Title:   addTitle,
			Authors: addAuthors,
			Tags:    addTags,
		})
		if err != nil {
			return err
		}
		fmt.Printf("added %s  %s\n", rec.ID(), rec.Title)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "title (otherwise derived from the source)")
	addCmd.Flags().StringSliceVar(&addAuthors, "author", nil, "author, repeatable")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "tag, repeatable")
	rootCmd.AddCommand(addCmd)
}
