package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwaldstein/qipu-sub000/internal/graph"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Inspect the link graph",
}

var (
	treeDirection string
	treeMaxHops   int
)

var linkTreeCmd = &cobra.Command{
	Use:   "tree <id>",
	Short: "Print the bounded spanning tree rooted at a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		dir, err := graph.ParseDirection(treeDirection)
		if err != nil {
			return err
		}
		opts := graph.DefaultTreeOptions()
		opts.Direction = dir
		opts.MaxHops = treeMaxHops

		result, err := graph.BFSTraverse(s.Index, s.Cfg, args[0], opts, nil, nil)
		if err != nil {
			return err
		}

		for _, n := range result.Notes {
			fmt.Printf("%s  %s\n", n.ID, n.Title)
		}
		for _, l := range result.Links {
			fmt.Printf("%s --%s--> %s (%s)\n", l.From, l.LinkType, l.To, l.Source)
		}
		if result.Truncated {
			fmt.Printf("truncated: %s\n", result.TruncationReason)
		}
		return nil
	},
}

var linkPathCmd = &cobra.Command{
	Use:   "path <from> <to>",
	Short: "Find the shortest path between two notes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		dir, err := graph.ParseDirection(treeDirection)
		if err != nil {
			return err
		}
		opts := graph.DefaultTreeOptions()
		opts.Direction = dir
		opts.MaxHops = treeMaxHops

		result, err := graph.BFSFindPath(s.Index, s.Cfg, args[0], args[1], opts, nil, nil)
		if err != nil {
			return err
		}
		if !result.Found {
			fmt.Println("no path found")
			return nil
		}
		for i, n := range result.Notes {
			if i > 0 {
				fmt.Print(" -> ")
			}
			fmt.Print(n.ID)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	linkCmd.PersistentFlags().StringVar(&treeDirection, "direction", "both", "out, in, or both")
	linkCmd.PersistentFlags().IntVar(&treeMaxHops, "max-hops", 3, "maximum hop count")
	linkCmd.AddCommand(linkTreeCmd, linkPathCmd)
	rootCmd.AddCommand(linkCmd)
}
