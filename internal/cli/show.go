package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/revq-dev/revq/internal/config"
	"github.com/revq-dev/revq/internal/output"
)

var showCmd = &cobra.Command{
	Use:   "show <ref>",
	Short: "Show one revision with diffs, comments, and reviewers",
	Long:  "Show the full detail of one revision. The reference is D<id> for a Phabricator revision or <project>!<iid> for a GitLab merge request (e.g. 42!7).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseRevisionRef(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.Load(buildOverrides())
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
		detail, err := agg.FetchRevisionDetail(ctx, ref.Source, ref.ID, ref.ProjectID)
		if err != nil {
			fail(err)
			return nil
		}

		if err := output.Render(cfg.Format, flagOut, func(w output.Writer, out io.Writer) error {
			return w.WriteDetail(out, detail)
		}); err != nil {
			fail(err)
			return nil
		}
		return nil
	},
}

func init() {
	addOutputFlags(showCmd)
}
