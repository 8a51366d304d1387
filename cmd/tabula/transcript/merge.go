package transcriptcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/merkle"
	"github.com/papercomputeco/tabula/pkg/transcript"
)

const mergeLongDesc string = `Fold other transcript databases into the local one.

Nodes are keyed by the hash of their content, so merging is a union.
Every node is re-hashed before it is stored: nodes whose hash does not
match their content, or that hold a malformed message, are rejected and
counted rather than copied.

Examples:
  tabula transcript merge laptop.db
  tabula transcript merge --sqlite /tmp/all.db ~/a/transcripts.db ~/b/transcripts.db`

const mergeShortDesc string = "Merge transcript databases into the local one"

type mergeCommander struct {
	sqlitePath string
}

// mergeCounts tallies one source database.
type mergeCounts struct {
	added, present, rejected int
}

func (m *mergeCounts) add(o mergeCounts) {
	m.added += o.added
	m.present += o.present
	m.rejected += o.rejected
}

func NewMergeCmd() *cobra.Command {
	cmder := &mergeCommander{}

	cmd := &cobra.Command{
		Use:   "merge <source.db>...",
		Short: mergeShortDesc,
		Long:  mergeLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Target transcript database (default from config)")

	return cmd
}

func (c *mergeCommander) run(ctx context.Context, cmd *cobra.Command, sources []string) error {
	targetPath, err := resolveDBPath(cmd, c.sqlitePath)
	if err != nil {
		return fmt.Errorf("could not resolve target database: %w", err)
	}

	target, err := merkle.NewSQLiteStorer(targetPath)
	if err != nil {
		return fmt.Errorf("could not open target database %s: %w", targetPath, err)
	}
	rec := transcript.NewRecorder(target, zap.NewNop())
	defer rec.Close()

	out := cmd.OutOrStdout()
	var total mergeCounts
	for _, src := range sources {
		counts, err := mergeFrom(ctx, rec, src)
		if err != nil {
			return err
		}
		total.add(counts)
		fmt.Fprintf(out, "  %s: %d added, %d present, %d rejected\n", src, counts.added, counts.present, counts.rejected)
	}

	fmt.Fprintf(out, "Added %d nodes from %d databases into %s (%d present, %d rejected)\n",
		total.added, len(sources), targetPath, total.present, total.rejected)
	return nil
}

func mergeFrom(ctx context.Context, rec *transcript.Recorder, srcPath string) (mergeCounts, error) {
	src, err := merkle.NewSQLiteStorer(srcPath)
	if err != nil {
		return mergeCounts{}, fmt.Errorf("could not open source database %s: %w", srcPath, err)
	}
	defer src.Close()

	// Insertion order puts parents before their children.
	nodes, err := src.List(ctx)
	if err != nil {
		return mergeCounts{}, fmt.Errorf("could not read %s: %w", srcPath, err)
	}

	var counts mergeCounts
	for _, n := range nodes {
		isNew, err := rec.Import(ctx, n)
		switch {
		case err != nil:
			counts.rejected++
		case isNew:
			counts.added++
		default:
			counts.present++
		}
	}
	return counts, nil
}
