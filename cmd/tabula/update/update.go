package updatecmder

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/tabula/cmd/tabula/bootstrap"
	"github.com/papercomputeco/tabula/pkg/source"
)

const updateLongDesc string = `Refresh the local sheet cache.

Every catalog sheet is fetched from the source, one at a time, and its
cache file is replaced atomically. A sheet that fails is reported and
skipped; the others are still refreshed. The command exits non-zero if
any sheet failed.

Examples:
  tabula update
  tabula update --config ./tabula.toml`

const updateShortDesc string = "Refresh the sheet cache"

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

func NewUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: updateShortDesc,
		Long:  updateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd)
		},
	}
	return cmd
}

func run(cmd *cobra.Command) error {
	cfg, err := bootstrap.LoadConfig(cmd)
	if err != nil {
		return err
	}
	logger := bootstrap.NewLogger(cfg)
	defer logger.Sync()

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Refresher == nil {
		return fmt.Errorf("no cache directory configured")
	}

	report, err := app.Refresher.Refresh(cmd.Context())
	printReport(cmd.OutOrStdout(), report)
	if err != nil {
		return fmt.Errorf("refresh incomplete: %w", err)
	}
	return nil
}

func printReport(w io.Writer, report *source.RefreshReport) {
	if report == nil {
		return
	}
	for _, s := range report.Sheets {
		if s.Status == source.StatusOK {
			fmt.Fprintf(w, "  %s %s %s\n", okStyle.Render("ok"), s.Sheet, dimStyle.Render(fmt.Sprintf("(%d rows -> %s)", s.Rows, s.File)))
		} else {
			fmt.Fprintf(w, "  %s %s %s\n", failStyle.Render("failed"), s.Sheet, dimStyle.Render(s.Error))
		}
	}
	fmt.Fprintf(w, "Refreshed %d of %d sheets\n", report.Succeeded, report.Succeeded+report.Failed)
}
