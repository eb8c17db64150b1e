package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwaldstein/qipu-sub000/internal/doctor"
	"github.com/mwaldstein/qipu-sub000/internal/store"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check store invariants and optionally fix what's fixable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := store.Discover(rootFlag)
		if err != nil {
			return err
		}
		s, err := store.Open(root)
		if err != nil {
			return err
		}
		defer s.Close()

		issues, err := doctor.Run(s, doctor.AllChecks())
		if err != nil {
			return err
		}

		for _, issue := range issues {
			fmt.Printf("[%s] %s: %s", issue.Severity, issue.Category, issue.Message)
			if issue.NoteID != "" {
				fmt.Printf(" (%s)", issue.NoteID)
			}
			fmt.Println()
		}

		if doctorFix {
			ctx, err := doctor.BuildContext(s)
			if err != nil {
				return err
			}
			result, err := doctor.Fix(ctx, issues)
			if err != nil {
				return err
			}
			fmt.Printf("fixed: %d dirs created, config created: %v, %d links pruned\n",
				len(result.DirsCreated), result.ConfigCreated, result.LinksPruned)

			remaining, err := doctor.Run(s, doctor.AllChecks())
			if err != nil {
				return err
			}
			errCount := 0
			for _, issue := range remaining {
				if issue.Severity == doctor.Error {
					errCount++
				}
			}
			if errCount > 0 {
				return fmt.Errorf("%d error(s) remain after fix", errCount)
			}
			return nil
		}

		errCount := 0
		for _, issue := range issues {
			if issue.Severity == doctor.Error {
				errCount++
			}
		}
		if errCount > 0 {
			return fmt.Errorf("%d error(s) found", errCount)
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "apply automatic fixes")
	rootCmd.AddCommand(doctorCmd)
}
