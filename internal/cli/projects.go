package cli

import (
	"context"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/revq-dev/revq/internal/config"
	"github.com/revq-dev/revq/internal/output"
)

var flagRefresh bool

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects visible to the configured credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
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
		projects, err := loadProjects(ctx, cfg, glc, phc, flagRefresh)
		if err != nil {
			fail(err)
			return nil
		}

		sort.Slice(projects, func(i, j int) bool {
			if projects[i].Source != projects[j].Source {
				return projects[i].Source < projects[j].Source
			}
			return projects[i].Name < projects[j].Name
		})

		report := &output.ProjectReport{Projects: projects}
		if err := output.Render(cfg.Format, flagOut, func(w output.Writer, out io.Writer) error {
			return w.WriteProjects(out, report)
		}); err != nil {
			fail(err)
			return nil
		}
		return nil
	},
}

func init() {
	addOutputFlags(projectsCmd)
	projectsCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "Bypass the project cache and refetch")
}
