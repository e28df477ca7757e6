package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Manage watch history",
	}

	watchCmd := &cobra.Command{
		Use:   "add",
		Short: "Record that a film was watched",
		Run:   runHistoryAdd,
	}
	addKeyFlags(watchCmd)
	watchCmd.Flags().IntP("position", "p", 0, "Playback position in seconds")

	rmCmd := &cobra.Command{
		Use:   "rm",
		Short: "Forget a watched film",
		Run:   runHistoryRm,
	}
	addKeyFlags(rmCmd)

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List watched films, most recent first",
		Run:   runHistoryLs,
	}
	lsCmd.Flags().IntP("limit", "l", 50, "Max results")

	historyCmd.AddCommand(watchCmd, rmCmd, lsCmd)
	RootCmd.AddCommand(historyCmd)
}

func runHistoryAdd(cmd *cobra.Command, args []string) {
	position, _ := cmd.Flags().GetInt("position")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	entry, err := s.RecordWatch(cmd.Context(), keyFromFlags(cmd), position)
	if err != nil {
		exitErr("history add", err)
	}
	b, _ := json.MarshalIndent(entry, "", "  ")
	fmt.Println(string(b))
}

func runHistoryRm(cmd *cobra.Command, args []string) {
	key := keyFromFlags(cmd)

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.RemoveHistory(cmd.Context(), key); err != nil {
		exitErr("history rm", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"channel":%q,"theme":%q,"title":%q}`+"\n", key.Channel, key.Theme, key.Title)
}

func runHistoryLs(cmd *cobra.Command, args []string) {
	n, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	entries, err := s.ListHistory(cmd.Context(), n)
	if err != nil {
		exitErr("history ls", err)
	}
	b, _ := json.MarshalIndent(entries, "", "  ")
	fmt.Println(string(b))
}
