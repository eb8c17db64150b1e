package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/store"
)

var (
	createType string
	createTags string
	createBody string
)

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		var tags []string
		if createTags != "" {
			tags = strings.Split(createTags, ",")
		}

		n, err := s.CreateNote(args[0], noteparse.NoteType(createType), tags, createBody)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", n.Frontmatter.ID, n.Path)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createType, "type", "fleeting", "note type: fleeting, literature, permanent, moc")
	createCmd.Flags().StringVar(&createTags, "tags", "", "comma-separated tags")
	createCmd.Flags().StringVar(&createBody, "body", "", "note body text")
	rootCmd.AddCommand(createCmd)
}

func openStore() (*store.Store, error) {
	root, err := store.Discover(rootFlag)
	if err != nil {
		return nil, err
	}
	return store.Open(root)
}
