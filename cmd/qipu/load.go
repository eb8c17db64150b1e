package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mwaldstein/qipu-sub000/internal/pack"
)

var (
	loadFormat   string
	loadStrategy string
)

var loadCmd = &cobra.Command{
	Use:   "load <pack-file>",
	Short: "Apply a pack's notes and links into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		var p *pack.Pack
		if loadFormat == "json" {
			p, err = pack.DecodeJSON(f)
		} else {
			p, err = pack.DecodeRecords(f)
		}
		if err != nil {
			return err
		}

		var strategy pack.LoadStrategy
		switch loadStrategy {
		case "skip":
			strategy = pack.StrategySkip
		case "overwrite":
			strategy = pack.StrategyOverwrite
		case "merge-links":
			strategy = pack.StrategyMergeLinks
		default:
			return fmt.Errorf("unknown load strategy %q", loadStrategy)
		}

		result, err := pack.Load(s, p, strategy)
		if err != nil {
			return err
		}
		fmt.Printf("created: %d, updated: %d, skipped: %d\n",
			len(result.Created), len(result.Updated), len(result.Skipped))
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadFormat, "format", "records", "records or json")
	loadCmd.Flags().StringVar(&loadStrategy, "strategy", "skip", "skip, overwrite, or merge-links")
	rootCmd.AddCommand(loadCmd)
}
