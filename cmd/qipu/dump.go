package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mwaldstein/qipu-sub000/internal/graph"
	"github.com/mwaldstein/qipu-sub000/internal/pack"
)

var (
	dumpIDs      []string
	dumpTag      string
	dumpMOC      string
	dumpQuery    string
	dumpExpand   bool
	dumpMaxHops  int
	dumpFormat   string
	dumpOutPath  string
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write a transportable pack of selected notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		sel := pack.Selection{
			IDs:         dumpIDs,
			Tag:         dumpTag,
			MOCOutbound: dumpMOC,
			Query:       dumpQuery,
		}
		if dumpExpand {
			sel.Expand = &pack.ExpandOptions{
				Direction: graph.Both,
				MaxHops:   dumpMaxHops,
			}
		}

		p, err := pack.BuildSelection(s, s.Index, sel)
		if err != nil {
			return err
		}

		var out = os.Stdout
		if dumpOutPath != "" {
			f, err := os.Create(dumpOutPath)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		if dumpFormat == "json" {
			return pack.EncodeJSON(out, p)
		}
		return pack.EncodeRecords(out, p)
	},
}

func init() {
	dumpCmd.Flags().StringSliceVar(&dumpIDs, "id", nil, "note id to include (repeatable)")
	dumpCmd.Flags().StringVar(&dumpTag, "tag", "", "include all notes carrying this tag")
	dumpCmd.Flags().StringVar(&dumpMOC, "moc", "", "include a MOC's typed outbound targets")
	dumpCmd.Flags().StringVar(&dumpQuery, "query", "", "include notes whose title or body match this substring")
	dumpCmd.Flags().BoolVar(&dumpExpand, "expand", false, "grow the selection via graph traversal")
	dumpCmd.Flags().IntVar(&dumpMaxHops, "max-hops", 2, "hop bound when --expand is set")
	dumpCmd.Flags().StringVar(&dumpFormat, "format", "records", "records or json")
	dumpCmd.Flags().StringVar(&dumpOutPath, "out", "", "output path (default stdout)")
	rootCmd.AddCommand(dumpCmd)
}
