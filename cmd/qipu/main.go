// Command qipu is a thin illustrative CLI over the store engine: init,
// create, show, search, link tree/path, doctor, dump, load. It exists
// to exercise the core API end to end, not to cover the full command
// surface a production frontend would expose.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mwaldstein/qipu-sub000/internal/qlog"
)

var (
	rootFlag string
	quiet    bool
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "qipu",
	Short: "A local, file-backed Zettelkasten knowledge store",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".", "store root (or a path beneath one)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	cobra.OnInitialize(func() {
		qlog.Configure(qlog.Options{Verbose: verbose, Quiet: quiet})
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
