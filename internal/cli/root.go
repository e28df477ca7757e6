// Package cli implements the filmlist CLI commands.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/filmlist/internal/config"
	"github.com/rcliao/filmlist/internal/log"
	"github.com/rcliao/filmlist/internal/metrics"
	"github.com/rcliao/filmlist/internal/model"
	"github.com/rcliao/filmlist/internal/record"
	"github.com/rcliao/filmlist/internal/store"
)

var (
	dbPath          string
	configPath      string
	formatFlag      string
	metricsTextfile string

	cfg   config.Config
	limit = record.NewLimitDate(0)
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "filmlist",
	Short: "Import and query broadcaster film lists",
	Long:  "Streams compressed broadcaster film lists into a local SQLite database in bounded chunks and queries the result.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if metricsTextfile == "" {
			return
		}
		if err := metrics.WriteTextfile(metricsTextfile); err != nil {
			fmt.Fprintf(os.Stderr, "warning: write metrics: %v\n", err)
		}
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $FILMLIST_DB or <dataDir>/films.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default: $FILMLIST_CONFIG)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file on exit")
}

func loadConfig() error {
	path := configPath
	if path == "" {
		path = os.Getenv("FILMLIST_CONFIG")
	}
	loaded, err := config.NewLoader(path).Load()
	if err != nil {
		return err
	}
	cfg = loaded
	if dbPath != "" {
		cfg.Database = dbPath
	}
	log.Configure(log.Config{Level: cfg.LogLevel})
	limit.Set(cfg.LimitDate(time.Now()))
	return nil
}

func getDBPath() string {
	return cfg.DatabasePath()
}

func openStore() (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(getDBPath())
	if err != nil {
		return nil, err
	}
	s.UseLimitDate(limit)
	return s, nil
}

func addKeyFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("channel", "c", "", "Channel (required)")
	cmd.Flags().StringP("theme", "t", "", "Theme (required)")
	cmd.Flags().StringP("title", "T", "", "Title (required)")
	cmd.MarkFlagRequired("channel")
	cmd.MarkFlagRequired("theme")
	cmd.MarkFlagRequired("title")
}

func keyFromFlags(cmd *cobra.Command) model.Key {
	channel, _ := cmd.Flags().GetString("channel")
	theme, _ := cmd.Flags().GetString("theme")
	title, _ := cmd.Flags().GetString("title")
	return model.Key{Channel: channel, Theme: theme, Title: title}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
