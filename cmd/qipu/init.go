package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwaldstein/qipu-sub000/internal/store"
)

var initIDPrefix string

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a new store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := rootFlag
		if len(args) == 1 {
			root = args[0]
		}
		s, err := store.Init(root, store.Options{IDPrefix: initIDPrefix})
		if err != nil {
			return err
		}
		defer s.Close()
		fmt.Printf("initialized store at %s\n", s.Root)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initIDPrefix, "id-prefix", "", "note id prefix (default \"qp\")")
	rootCmd.AddCommand(initCmd)
}
