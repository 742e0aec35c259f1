package output

import (
	"fmt"
	"io"
	"os"

	"github.com/revq-dev/revq/internal/aggregate"
	"github.com/revq-dev/revq/internal/model"
)

// ListReport is the result of an aggregation run: the merged revision list
// plus any per-project failures that did not abort the run.
type ListReport struct {
	Revisions []model.Revision    `json:"revisions"`
	Errors    []model.SourceError `json:"errors,omitempty"`
}

// ProjectReport lists the projects visible to the configured credentials.
type ProjectReport struct {
	Projects []model.Project `json:"projects"`
}

// Writer renders reports in a specific format.
type Writer interface {
	WriteList(w io.Writer, report *ListReport) error
	WriteDetail(w io.Writer, detail *aggregate.Detail) error
	WriteProjects(w io.Writer, report *ProjectReport) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Render writes a report to outPath, or stdout when outPath is empty.
func Render(format, outPath string, write func(Writer, io.Writer) error) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return write(writer, w)
}
