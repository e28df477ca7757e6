package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/filmlist/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show one film with resolved media locators",
		Run:   runGet,
	}

	addKeyFlags(cmd)

	RootCmd.AddCommand(cmd)
}

// filmView is a record with its compact locators expanded.
type filmView struct {
	model.Record
	Resolved struct {
		Small    string `json:"small"`
		HD       string `json:"hd"`
		Subtitle string `json:"subtitle,omitempty"`
		Website  string `json:"website,omitempty"`
	} `json:"resolved"`
}

func newFilmView(r model.Record) filmView {
	v := filmView{Record: r}
	v.Resolved.Small = r.SmallURLResolved()
	v.Resolved.HD = r.HDURLResolved()
	v.Resolved.Subtitle = r.SubtitleURLResolved()
	v.Resolved.Website = r.WebsiteResolved()
	return v
}

func runGet(cmd *cobra.Command, args []string) {
	key := keyFromFlags(cmd)

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	film, err := s.Get(cmd.Context(), key)
	if err != nil {
		exitErr("get", err)
	}

	if formatFlag == "text" {
		fmt.Printf("%s\n%s %s (%s)\n%s\n", key, film.Date, film.Time, film.Duration, film.HDURLResolved())
		return
	}
	b, _ := json.MarshalIndent(newFilmView(film), "", "  ")
	fmt.Println(string(b))
}
