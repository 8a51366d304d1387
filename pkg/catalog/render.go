package catalog

import (
	"fmt"
	"strings"
)

// Render lists every sheet with its meaning, identity field and fields, in
// the numbered form used inside prompts.
func (c *Catalog) Render() string {
	var b strings.Builder
	for i, d := range c.sheets {
		writeSheet(&b, i+1, d)
	}
	return b.String()
}

// RenderSheets is Render restricted to the named sheets. Unknown names are skipped.
func (c *Catalog) RenderSheets(names []string) string {
	var b strings.Builder
	n := 0
	for _, name := range names {
		d, ok := c.Lookup(name)
		if !ok {
			continue
		}
		n++
		writeSheet(&b, n, d)
	}
	return b.String()
}

func writeSheet(b *strings.Builder, n int, d SheetDescriptor) {
	fmt.Fprintf(b, "%d. %s", n, d.Name)
	if d.Description != "" {
		fmt.Fprintf(b, " - %s", d.Description)
	}
	fmt.Fprintf(b, "\n   Identity field: %s\n", d.Identity)
	fmt.Fprintf(b, "   Fields (%d): [%s]\n\n", len(d.Fields), strings.Join(d.Fields, ", "))
}
