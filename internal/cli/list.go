package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/revq-dev/revq/internal/aggregate"
	"github.com/revq-dev/revq/internal/config"
	"github.com/revq-dev/revq/internal/model"
	"github.com/revq-dev/revq/internal/output"
	"github.com/revq-dev/revq/internal/source"
)

// Shared output and fetch flags
var (
	flagFormat      string
	flagOut         string
	flagConcurrency int
	flagSource      string
	flagProjects    []int64
)

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagConcurrency > 0 {
		m["concurrency"] = fmt.Sprintf("%d", flagConcurrency)
	}
	return m
}

// buildScope translates --source and --project flags into a fetch scope.
func buildScope() (aggregate.Scope, error) {
	scope := aggregate.Scope{ProjectIDs: flagProjects}
	if flagSource != "" {
		src, ok := model.ParseSource(flagSource)
		if !ok {
			return aggregate.Scope{}, fmt.Errorf("unknown source %q (use gitlab or phabricator)", flagSource)
		}
		scope.Sources = []model.Source{src}
	}
	return scope, nil
}

// fail prints an error and maps it to an exit code. Auth failures get their
// own code so wrappers can prompt for new credentials.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if source.IsAuthError(err) {
		exitCode = ExitAuthError
		return
	}
	exitCode = ExitRuntimeError
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List open revisions across configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		scope, err := buildScope()
		if err != nil {
			return err
		}

		log := newLogger()
		defer log.Sync()

		glc, phc, err := buildClients(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		projects, err := loadProjects(ctx, cfg, glc, phc, false)
		if err != nil {
			fail(err)
			return nil
		}

		agg := buildAggregator(cfg, glc, phc, projects, log)
		result, err := agg.FetchAllRevisions(ctx, scope)
		if err != nil {
			fail(err)
			return nil
		}

		// Most recently touched first.
		sort.SliceStable(result.Revisions, func(i, j int) bool {
			return result.Revisions[i].DateModified > result.Revisions[j].DateModified
		})

		report := &output.ListReport{Revisions: result.Revisions, Errors: result.Errors}
		if err := output.Render(cfg.Format, flagOut, func(w output.Writer, out io.Writer) error {
			return w.WriteList(out, report)
		}); err != nil {
			fail(err)
			return nil
		}

		if len(result.Errors) > 0 {
			exitCode = ExitPartial
		}
		return nil
	},
}

func init() {
	addOutputFlags(listCmd)
	listCmd.Flags().StringVar(&flagSource, "source", "", "Restrict to one source (gitlab, phabricator)")
	listCmd.Flags().Int64SliceVar(&flagProjects, "project", nil, "Restrict to GitLab project IDs (repeatable)")
	listCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Maximum concurrent project fetches")
}
