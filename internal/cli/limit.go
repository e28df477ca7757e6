package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "limit",
		Short: "Count films inside a time period",
		Long: "Evaluate the recent threshold against the stored films. Without flags the configured limitDays is used; " +
			"--days or --since override it for this call.",
		Run: runLimit,
	}

	cmd.Flags().Int("days", -1, "Threshold is now minus this many days")
	cmd.Flags().Int64("since", -1, "Threshold as epoch seconds")

	RootCmd.AddCommand(cmd)
}

func runLimit(cmd *cobra.Command, args []string) {
	days, _ := cmd.Flags().GetInt("days")
	since, _ := cmd.Flags().GetInt64("since")

	switch {
	case since >= 0:
		limit.Set(since)
	case days >= 0:
		c := cfg
		c.LimitDays = days
		limit.Set(c.LimitDate(time.Now()))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	total, err := s.Count(cmd.Context())
	if err != nil {
		exitErr("count", err)
	}
	recent, err := s.CountInTimePeriod(cmd.Context(), limit.Get())
	if err != nil {
		exitErr("count", err)
	}

	b, _ := json.MarshalIndent(map[string]any{
		"limit_date":     limit.Get(),
		"total":          total,
		"in_time_period": recent,
	}, "", "  ")
	fmt.Println(string(b))
}
