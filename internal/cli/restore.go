package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/filmlist/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "restore [export.json]",
		Short: "Restore films from a JSON export",
		Long:  "Merge films from a JSON export (file argument or stdin) into the database. Expects the format produced by export.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runRestore,
	}

	RootCmd.AddCommand(cmd)
}

func runRestore(cmd *cobra.Command, args []string) {
	var in io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open export", err)
		}
		defer f.Close()
		in = f
	}

	records, err := store.ReadExport(in)
	if err != nil {
		exitErr("parse json", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.Import(cmd.Context(), records)
	if err != nil {
		exitErr("restore", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
