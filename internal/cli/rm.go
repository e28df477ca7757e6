package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Delete a film",
		Long:  "Delete one film by channel, theme and title. The next full import may bring it back.",
		Run:   runRm,
	}

	addKeyFlags(cmd)

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	key := keyFromFlags(cmd)

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Delete(cmd.Context(), key); err != nil {
		exitErr("rm", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"channel":%q,"theme":%q,"title":%q}`+"\n", key.Channel, key.Theme, key.Title)
}
