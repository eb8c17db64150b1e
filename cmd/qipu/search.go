package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwaldstein/qipu-sub000/internal/compaction"
	"github.com/mwaldstein/qipu-sub000/internal/filter"
	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/search"
	"github.com/mwaldstein/qipu-sub000/internal/store"
)

var (
	searchType                string
	searchTag                 string
	searchSince               string
	searchLimit               int
	searchNoResolveCompaction bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		opts := search.Options{Type: searchType, Tag: searchTag, Limit: searchLimit}
		if searchSince != "" {
			since, err := filter.ParseSince(searchSince, time.Now())
			if err != nil {
				return err
			}
			opts.Since = &since
		}

		results, err := search.Search(s.Index, args[0], opts)
		if err != nil {
			return err
		}

		if !searchNoResolveCompaction {
			cctx, err := loadCompactionContext(s)
			if err != nil {
				return err
			}
			results, err = search.ResolveCompaction(results, s.Index, cctx)
			if err != nil {
				return err
			}
		}

		for _, r := range results {
			via := ""
			if r.Via != "" {
				via = " via " + r.Via
			}
			fmt.Printf("%.3f  %s  %s%s\n", r.Relevance, r.ID, r.Title, via)
		}
		return nil
	},
}

func loadCompactionContext(s *store.Store) (*compaction.Context, error) {
	ids, err := s.ListNoteIDs()
	if err != nil {
		return nil, err
	}
	notes := make([]*noteparse.Note, 0, len(ids))
	for _, id := range ids {
		if n, err := s.GetNote(id); err == nil {
			notes = append(notes, n)
		}
	}
	return compaction.Build(notes)
}

func init() {
	searchCmd.Flags().StringVar(&searchType, "type", "", "filter by note type")
	searchCmd.Flags().StringVar(&searchTag, "tag", "", "filter by tag")
	searchCmd.Flags().StringVar(&searchSince, "since", "", "only notes created on or after this time (RFC3339 or natural language)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "max results")
	searchCmd.Flags().BoolVar(&searchNoResolveCompaction, "no-resolve-compaction", false, "don't fold results into their compaction digest")
	rootCmd.AddCommand(searchCmd)
}
