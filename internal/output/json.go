package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/revq-dev/revq/internal/aggregate"
)

// JSONWriter renders reports as indented JSON.
type JSONWriter struct{}

func (j *JSONWriter) WriteList(w io.Writer, report *ListReport) error {
	return writeJSON(w, report)
}

func (j *JSONWriter) WriteDetail(w io.Writer, detail *aggregate.Detail) error {
	return writeJSON(w, detail)
}

func (j *JSONWriter) WriteProjects(w io.Writer, report *ProjectReport) error {
	return writeJSON(w, report)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
