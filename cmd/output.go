package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

var outputFormat string

// printResult writes v to w in the selected output format. YAML keys follow
// the JSON field names.
func printResult(w io.Writer, v any) error {
	switch strings.ToLower(outputFormat) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		b, err := json.Marshal(v)
		if err != nil {
			return eris.Wrap(err, "output: marshal")
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return eris.Wrap(err, "output: normalize")
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return eris.Wrap(err, "output: yaml")
		}
		return enc.Close()
	default:
		return eris.Errorf("unsupported output format %q (want json or yaml)", outputFormat)
	}
}
