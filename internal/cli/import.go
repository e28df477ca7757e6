package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/filmlist/internal/filmlist"
	"github.com/rcliao/filmlist/internal/ingest"
)

func init() {
	importCmd := &cobra.Command{
		Use:   "import <film-list>",
		Short: "Reload the database from a full film list",
		Long: "Replace all stored films with the content of a film list. Compressed lists (.xz, .gz, .zst) are " +
			"decompressed to a transient file first, which is deleted once the import succeeded.",
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runIngest(cmd, filmlist.ModeFull, args[0])
		},
	}
	diffCmd := &cobra.Command{
		Use:   "diff <diff-list>",
		Short: "Merge a diff film list into the database",
		Long:  "Upsert every record of a diff list by channel, theme and title. Applying the same diff twice has no further effect.",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runIngest(cmd, filmlist.ModeDiff, args[0])
		},
	}

	for _, cmd := range []*cobra.Command{importCmd, diffCmd} {
		cmd.Flags().Int("max-entries", -1, "Stop after this many records (default from config)")
		cmd.Flags().Bool("keep-transient", false, "Keep the decompressed file")
		cmd.Flags().Bool("progress", false, "Print progress to stderr")
		RootCmd.AddCommand(cmd)
	}
}

func runIngest(cmd *cobra.Command, mode, path string) {
	maxEntries, _ := cmd.Flags().GetInt("max-entries")
	keep, _ := cmd.Flags().GetBool("keep-transient")
	progress, _ := cmd.Flags().GetBool("progress")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	opts := cfg.ParserOptions()
	if maxEntries >= 0 {
		opts.MaxEntries = maxEntries
	}
	svcOpts := ingest.Options{
		Parser:        opts,
		KeepTransient: keep || cfg.KeepTransient,
		RunLog:        s,
	}
	if progress {
		svcOpts.OnState = func(st ingest.State) {
			fmt.Fprintf(os.Stderr, "%s\n", st)
		}
	}

	svc := ingest.New(s, limit, svcOpts)
	start := svc.StartFull
	if mode == filmlist.ModeDiff {
		start = svc.StartDiff
	}
	run, err := start(cmd.Context(), path)
	if err != nil {
		exitErr(mode, err)
	}

	out, err := run.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		exitErr(mode, err)
	}

	b, _ := json.MarshalIndent(struct {
		RunID string `json:"run_id"`
		ingest.Outcome
	}{RunID: run.ID, Outcome: out}, "", "  ")
	fmt.Println(string(b))
}
