package core

import (
	"encoding/json"
	"io"
)

// MarshalViews pretty-prints views as JSON for humans or pipelines.
func MarshalViews(w io.Writer, views []View) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

// UnmarshalViews decodes views JSON, useful for ingestion tests.
func UnmarshalViews(r io.Reader) ([]View, error) {
	var vs []View
	if err := json.NewDecoder(r).Decode(&vs); err != nil {
		return nil, err
	}
	return vs, nil
}
