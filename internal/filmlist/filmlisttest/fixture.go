// Package filmlisttest builds film-list fixtures for tests.
package filmlisttest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rcliao/filmlist/internal/record"
)

// Header is the metadata preamble of a real film list: a creation entry and
// the column names, both under the key "Filmliste".
const Header = `"Filmliste":["16.10.2026, 05:50","16.10.2026, 03:50","3","MSearch [Vers.: 3.1.139]","0f1e"],` +
	`"Filmliste":["Sender","Thema","Titel","Datum","Zeit","Dauer","Größe [MB]","Beschreibung","Url","Website",` +
	`"Url Untertitel","Url RTMP","Url Klein","Url RTMP Klein","Url HD","Url RTMP HD","DatumL","Url History","Geo","neu"]`

// Film returns a full positional field array.
func Film(channel, theme, title string, ts int64) []string {
	f := make([]string, record.FieldCount)
	f[record.FieldChannel] = channel
	f[record.FieldTheme] = theme
	f[record.FieldTitle] = title
	f[record.FieldDate] = "16.10.2026"
	f[record.FieldTime] = "20:15:00"
	f[record.FieldDuration] = "00:44:30"
	f[record.FieldSize] = "850"
	f[record.FieldDescription] = "Beschreibung von " + title
	f[record.FieldURL] = "https://media.example/" + strings.ToLower(channel) + "/video.mp4"
	f[record.FieldWebsite] = "https://www.example/" + title
	f[record.FieldSmallURL] = strconv.Itoa(len("https://media.example/")) + "|small.mp4"
	f[record.FieldHDURL] = ""
	f[record.FieldTimestamp] = strconv.FormatInt(ts, 10)
	f[record.FieldGeo] = "DE"
	f[record.FieldNew] = "false"
	return f
}

// Array encodes fields as one JSON array.
func Array(fields []string) string {
	b, err := json.Marshal(fields)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// List renders a complete film list from already encoded record arrays.
func List(arrays ...string) string {
	var sb strings.Builder
	sb.WriteString("{")
	sb.WriteString(Header)
	for _, a := range arrays {
		sb.WriteString(`,"X":`)
		sb.WriteString(a)
	}
	sb.WriteString("}")
	return sb.String()
}

// Films renders a film list from field arrays.
func Films(films ...[]string) string {
	arrays := make([]string, len(films))
	for i, f := range films {
		arrays[i] = Array(f)
	}
	return List(arrays...)
}

// Numbered returns n films of one channel with increasing timestamps.
// Channel and theme are blank after the first film, as in real lists.
func Numbered(channel, theme string, n int, firstTS int64) [][]string {
	out := make([][]string, n)
	for i := range out {
		c, th := channel, theme
		if i > 0 {
			c, th = "", ""
		}
		out[i] = Film(c, th, "Folge "+strconv.Itoa(i+1), firstTS+int64(i))
	}
	return out
}

// WriteFile writes content to name inside a fresh temp dir and returns the path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}
