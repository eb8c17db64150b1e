package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showWithLinks bool

var showCmd = &cobra.Command{
	Use:   "show <id-or-path>",
	Short: "Print a note's frontmatter and body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.LoadByIDOrPath(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("id: %s\n", n.Frontmatter.ID)
		fmt.Printf("title: %s\n", n.Frontmatter.Title)
		fmt.Printf("type: %s\n", n.NoteTypeOf())
		if len(n.Frontmatter.Tags) > 0 {
			fmt.Printf("tags: %v\n", n.Frontmatter.Tags)
		}
		if showWithLinks && len(n.Frontmatter.Links) > 0 {
			fmt.Println("links:")
			for _, l := range n.Frontmatter.Links {
				fmt.Printf("  %s -> %s\n", l.Type, l.ID)
			}
		}
		fmt.Println()
		fmt.Println(n.Body)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showWithLinks, "with-links", false, "also print typed links")
	rootCmd.AddCommand(showCmd)
}
