package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/revq-dev/revq/internal/aggregate"
	"github.com/revq-dev/revq/internal/config"
	"github.com/revq-dev/revq/internal/model"
	"github.com/revq-dev/revq/internal/source"
)

var (
	flagCommentFile string
	flagOldLine     int
	flagNewLine     int
	flagSide        string
)

// buildPosition assembles an inline position from flags, or nil for a
// general comment.
func buildPosition() *model.CommentPosition {
	if flagCommentFile == "" && flagOldLine == 0 && flagNewLine == 0 {
		return nil
	}
	return &model.CommentPosition{
		FilePath: flagCommentFile,
		OldLine:  flagOldLine,
		NewLine:  flagNewLine,
		Side:     flagSide,
	}
}

var commentCmd = &cobra.Command{
	Use:   "comment <ref> <body>",
	Short: "Post a comment on a revision",
	Long:  "Post a general comment, or an inline comment when --file and a line flag are given. The reference is D<id> or <project>!<iid>.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseRevisionRef(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}

		log := newLogger()
		defer log.Sync()

		glc, phc, err := buildClients(cfg)
		if err != nil {
			return err
		}

		// Posting needs no project table; skip the listing round-trip.
		agg := buildAggregator(cfg, glc, phc, nil, log)

		ctx := context.Background()
		comment, err := agg.PostComment(ctx, ref.Source, ref.ID, ref.ProjectID, args[1], buildPosition())
		if err != nil {
			var ve *source.ValidationError
			if errors.As(err, &ve) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				exitCode = ExitUsageError
				return nil
			}
			fail(err)
			return nil
		}

		if comment.ID != 0 {
			fmt.Fprintf(os.Stdout, "Comment %d posted on %s\n", comment.ID, args[0])
		} else {
			fmt.Fprintf(os.Stdout, "Comment posted on %s\n", args[0])
		}
		return nil
	},
}

var deleteCommentCmd = &cobra.Command{
	Use:   "delete-comment <ref> <comment-id>",
	Short: "Delete a comment from a revision",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseRevisionRef(args[0])
		if err != nil {
			return err
		}
		commentID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid comment ID %q", args[1])
		}
		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}

		log := newLogger()
		defer log.Sync()

		glc, phc, err := buildClients(cfg)
		if err != nil {
			return err
		}
		agg := buildAggregator(cfg, glc, phc, nil, log)

		ctx := context.Background()
		if err := agg.DeleteComment(ctx, ref.Source, ref.ID, ref.ProjectID, commentID); err != nil {
			if errors.Is(err, aggregate.ErrUnsupported) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				exitCode = ExitUsageError
				return nil
			}
			if source.IsNotFound(err) {
				fmt.Fprintf(os.Stderr, "Error: comment %d not found on %s\n", commentID, args[0])
				exitCode = ExitRuntimeError
				return nil
			}
			fail(err)
			return nil
		}

		fmt.Fprintf(os.Stdout, "Comment %d deleted from %s\n", commentID, args[0])
		return nil
	},
}

func init() {
	commentCmd.Flags().StringVar(&flagCommentFile, "file", "", "File path for an inline comment")
	commentCmd.Flags().IntVar(&flagOldLine, "old-line", 0, "Line number on the old side of the diff")
	commentCmd.Flags().IntVar(&flagNewLine, "new-line", 0, "Line number on the new side of the diff")
	commentCmd.Flags().StringVar(&flagSide, "side", "", "Diff side hint (old, new)")
}
