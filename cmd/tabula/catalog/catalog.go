package catalogcmder

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/cmd/tabula/bootstrap"
	"github.com/papercomputeco/tabula/pkg/catalog"
	"github.com/papercomputeco/tabula/pkg/source/cache"
)

const catalogLongDesc string = `List the sheets the agent can answer from.

Shows each sheet's description, identity field and field count. Use
--fields to include the full field list and --json for machine output.

Examples:
  tabula catalog
  tabula catalog --fields
  tabula catalog --json`

const catalogShortDesc string = "List the sheet catalog"

type catalogCommander struct {
	fields bool
	json   bool
}

func NewCatalogCmd() *cobra.Command {
	cmder := &catalogCommander{}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: catalogShortDesc,
		Long:  catalogLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.fields, "fields", false, "Include every field name")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print the catalog as JSON")

	return cmd
}

func (c *catalogCommander) run(cmd *cobra.Command) error {
	cfg, err := bootstrap.LoadConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := cfg.Catalog()
	if err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	cached, err := cachedFiles(cfg.Cache.Dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if c.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cat.Sheets())
	}

	fmt.Fprintln(out, c.render(cat, cached))
	return nil
}

// cachedFiles returns the cache file names present in dir, or nil when no
// cache is configured.
func cachedFiles(dir string) (map[string]bool, error) {
	if dir == "" {
		return nil, nil
	}
	dir = bootstrap.ResolvePath(dir)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return map[string]bool{}, nil
	}
	store, err := cache.NewStore(dir, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("could not open cache: %w", err)
	}
	files, err := store.Cached()
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(files))
	for _, f := range files {
		out[f] = true
	}
	return out, nil
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func (c *catalogCommander) render(cat *catalog.Catalog, cached map[string]bool) string {
	headers := []string{"Sheet", "Identity", "Fields", "Description"}
	if cached != nil {
		headers = append(headers, "Cached")
	}
	if c.fields {
		headers = append(headers, "Field names")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, d := range cat.Sheets() {
		row := []string{d.Name, d.Identity, strconv.Itoa(len(d.Fields)), d.Description}
		if cached != nil {
			mark := "no"
			if cached[cache.FileName(d.Name)] {
				mark = "yes"
			}
			row = append(row, mark)
		}
		if c.fields {
			row = append(row, wrapFields(d.Fields))
		}
		t.Row(row...)
	}
	return t.String()
}

// wrapFields puts a few fields per line so wide sheets stay readable.
func wrapFields(fields []string) string {
	const perLine = 4
	var b []byte
	for i, f := range fields {
		switch {
		case i == 0:
		case i%perLine == 0:
			b = append(b, ",\n"...)
		default:
			b = append(b, ", "...)
		}
		b = append(b, f...)
	}
	return string(b)
}

