package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"backoffice/internal/fiscal"
)

// CLIResponse is the JSON envelope printed with --format json.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type output struct {
	format string
	w      io.Writer
}

func newOutput(opts *RootOptions, w io.Writer) output {
	return output{format: opts.Format, w: w}
}

func (o output) json() bool { return o.format == "json" }

func (o output) writeJSON(v interface{}) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// success prints data as JSON, or runs text when the format is text.
func (o output) success(data interface{}, text func(w io.Writer)) error {
	if o.json() {
		return o.writeJSON(CLIResponse{Status: "ok", Data: data})
	}
	text(o.w)
	return nil
}

// violations prints the violations and returns an error summarising them, so
// the process exits non-zero.
func (o output) violations(vs []fiscal.Violation) error {
	err := fmt.Errorf("%d violation(s) found", len(vs))
	if o.json() {
		if werr := o.writeJSON(CLIResponse{Status: "error", Data: vs, Error: err.Error()}); werr != nil {
			return werr
		}
		return err
	}
	for _, v := range vs {
		fmt.Fprintf(o.w, "✗ %s: %s\n", v.Field, v.Message)
	}
	return err
}

func (o output) failure(err error) error {
	if o.json() {
		if werr := o.writeJSON(CLIResponse{Status: "error", Error: err.Error()}); werr != nil {
			return werr
		}
	}
	return err
}
