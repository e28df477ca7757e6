package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/filmlist/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List films, newest first",
		Run:   runList,
	}

	cmd.Flags().StringP("channel", "c", "", "Filter by channel")
	cmd.Flags().StringP("theme", "t", "", "Filter by theme")
	cmd.Flags().Bool("recent", false, "Only films newer than the limit date")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("keys-only", false, "Only output channel/theme/title")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	channel, _ := cmd.Flags().GetString("channel")
	theme, _ := cmd.Flags().GetString("theme")
	recent, _ := cmd.Flags().GetBool("recent")
	n, _ := cmd.Flags().GetInt("limit")
	keysOnly, _ := cmd.Flags().GetBool("keys-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	films, err := s.List(cmd.Context(), store.ListParams{
		Channel: channel,
		Theme:   theme,
		Recent:  recent,
		Limit:   n,
	})
	if err != nil {
		exitErr("list", err)
	}

	if keysOnly || formatFlag == "text" {
		for _, f := range films {
			fmt.Println(f.Key())
		}
		return
	}

	b, _ := json.MarshalIndent(films, "", "  ")
	fmt.Println(string(b))
}
