package app

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/specialistvlad/hclmacros/internal/fsutil"
)

// Report summarizes a finished build.
type Report struct {
	BuildID string       `json:"build_id"`
	Mode    string       `json:"mode"`
	Files   []FileReport `json:"files"`
	Errors  []string     `json:"errors,omitempty"`
	Failed  bool         `json:"failed"`
}

// FileReport describes one transformed file.
type FileReport struct {
	Path    string `json:"path"`
	Package string `json:"package"`
	Kind    string `json:"kind"`
	Output  string `json:"output"`
	Changed bool   `json:"changed"`
	Error   string `json:"error,omitempty"`

	abs    string
	source []byte
	output []byte
}

// Contents returns the bytes written for the file.
func (f FileReport) Contents() []byte { return f.output }

func (r *Report) addTemplateErrors(errs []error) {
	for _, err := range errs {
		r.Errors = append(r.Errors, err.Error())
		r.Failed = true

		ce, ok := templateError(err)
		if !ok {
			continue
		}
		for i := range r.Files {
			if r.Files[i].Kind == "template" && r.Files[i].Error == "" && r.Files[i].abs == ce.File {
				r.Files[i].Error = ce.Message
			}
		}
	}
}

// JSON renders the report.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// WriteFile writes the report as JSON to path.
func (r *Report) WriteFile(path string) error {
	data, err := r.JSON()
	if err != nil {
		return fmt.Errorf("failed to encode build report: %w", err)
	}
	if err := fsutil.WriteFile(path, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write build report: %w", err)
	}
	return nil
}
