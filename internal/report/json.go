package report

import (
	"encoding/json"
	"io"
)

// WriteJSON pretty-prints views for pipelines.
func WriteJSON(w io.Writer, views []View) error {
	if views == nil {
		views = []View{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}
