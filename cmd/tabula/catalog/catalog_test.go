package catalogcmder

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabula/cmd/tabula/bootstrap"
	"github.com/papercomputeco/tabula/pkg/catalog"
)

var _ = Describe("Catalog Command", func() {
	var cacheDir string

	BeforeEach(func() {
		home := GinkgoT().TempDir()
		cacheDir = filepath.Join(home, "cache")
		GinkgoT().Setenv("HOME", home)
		GinkgoT().Setenv("TABULA_CONFIG", "")
		GinkgoT().Setenv("TABULA_CACHE_DIR", cacheDir)
	})

	run := func(args ...string) string {
		cmd := NewCatalogCmd()
		bootstrap.AddFlags(cmd)
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs(args)
		Expect(cmd.Execute()).To(Succeed())
		return out.String()
	}

	It("tabulates the built-in sheets", func() {
		out := run()
		for _, name := range catalog.Default().Names() {
			Expect(out).To(ContainSubstring(name))
		}
		Expect(out).To(ContainSubstring("DO-Delivery Order No."))
	})

	It("marks cached sheets", func() {
		Expect(os.MkdirAll(cacheDir, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(cacheDir, "Sales_Invoices.json"), []byte(`{"rows":[]}`), 0o644)).To(Succeed())

		out := run()
		Expect(out).To(ContainSubstring("Cached"))
		Expect(out).To(MatchRegexp(`Sales Invoices.*yes`))
		Expect(out).To(MatchRegexp(`Checklist.*no`))
	})

	It("prints JSON", func() {
		var sheets []catalog.SheetDescriptor
		Expect(json.Unmarshal([]byte(run("--json")), &sheets)).To(Succeed())
		Expect(sheets).To(HaveLen(9))
		Expect(sheets[0].Name).To(Equal("Checklist"))
	})

	It("wraps field lists", func() {
		Expect(wrapFields([]string{"a", "b", "c", "d", "e"})).To(Equal("a, b, c, d,\ne"))
	})
})
