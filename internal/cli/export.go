package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export films as JSON",
		Long:  "Export stored films as a JSON array. With -o the file is replaced atomically. Filter by channel with -c.",
		Run:   runExport,
	}

	cmd.Flags().StringP("channel", "c", "", "Filter by channel")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	channel, _ := cmd.Flags().GetString("channel")
	output, _ := cmd.Flags().GetString("output")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if output != "" {
		n, err := s.WriteExport(cmd.Context(), output, channel)
		if err != nil {
			exitErr("export", err)
		}
		fmt.Printf(`{"ok":true,"exported":%d,"path":%q}`+"\n", n, output)
		return
	}

	films, err := s.ExportAll(cmd.Context(), channel)
	if err != nil {
		exitErr("export", err)
	}
	b, _ := json.MarshalIndent(films, "", "  ")
	fmt.Println(string(b))
}
