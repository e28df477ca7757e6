package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	favCmd := &cobra.Command{
		Use:   "fav",
		Short: "Manage favorites",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a favorite",
		Run:   runFavAdd,
	}
	addKeyFlags(addCmd)

	rmCmd := &cobra.Command{
		Use:   "rm",
		Short: "Remove a favorite",
		Run:   runFavRm,
	}
	addKeyFlags(rmCmd)

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List favorites",
		Run:   runFavLs,
	}

	favCmd.AddCommand(addCmd, rmCmd, lsCmd)
	RootCmd.AddCommand(favCmd)
}

func runFavAdd(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	fav, err := s.AddFavorite(cmd.Context(), keyFromFlags(cmd))
	if err != nil {
		exitErr("fav add", err)
	}
	b, _ := json.MarshalIndent(fav, "", "  ")
	fmt.Println(string(b))
}

func runFavRm(cmd *cobra.Command, args []string) {
	key := keyFromFlags(cmd)

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.RemoveFavorite(cmd.Context(), key); err != nil {
		exitErr("fav rm", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"channel":%q,"theme":%q,"title":%q}`+"\n", key.Channel, key.Theme, key.Title)
}

func runFavLs(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	favs, err := s.ListFavorites(cmd.Context())
	if err != nil {
		exitErr("fav ls", err)
	}
	if formatFlag == "text" {
		for _, f := range favs {
			fmt.Println(f.Key)
		}
		return
	}
	b, _ := json.MarshalIndent(favs, "", "  ")
	fmt.Println(string(b))
}
