package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/filmlist/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	cmd.Flags().Bool("verify", false, "Run an integrity check")
	cmd.Flags().Bool("full", false, "With --verify, run the full integrity_check instead of quick_check")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	verify, _ := cmd.Flags().GetBool("verify")
	full, _ := cmd.Flags().GetBool("full")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	out := struct {
		*store.Stats
		Integrity []string `json:"integrity,omitempty"`
	}{Stats: stats}

	if verify {
		problems, err := s.Verify(cmd.Context(), full)
		if err != nil {
			exitErr("verify", err)
		}
		out.Integrity = []string{"ok"}
		if problems != nil {
			out.Integrity = problems
		}
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
