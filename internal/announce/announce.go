// Package announce renders the short social post that accompanies each run.
package announce

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"hinosemi/internal/index"
)

const postTemplate = `【{{.Key}}{{if .Title}} | {{.Title}}{{end}}】
本日：{{signed .Percent}}%
構成：{{join .Tickers ","}}
{{- if .Hashtags}}
{{join .Hashtags " "}}{{end}}
`

var tmpl = template.Must(template.New("post").Funcs(template.FuncMap{
	"join":   strings.Join,
	"signed": func(v float64) string { return fmt.Sprintf("%+.2f", v) },
}).Parse(postTemplate))

// Post is the data rendered into an announcement.
type Post struct {
	Key      string
	Title    string
	Percent  float64
	Tickers  []string
	Hashtags []string
}

// FromSnapshot builds a post from a run snapshot.
func FromSnapshot(snap index.Snapshot, title string, hashtags []string) Post {
	return Post{
		Key:      snap.Key,
		Title:    title,
		Percent:  snap.PctIntraday,
		Tickers:  snap.Tickers,
		Hashtags: hashtags,
	}
}

// Render formats the post text.
func Render(p Post) (string, error) {
	if p.Key == "" {
		return "", fmt.Errorf("post requires an index key")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render post: %w", err)
	}
	return buf.String(), nil
}
