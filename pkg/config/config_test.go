package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/multierr"

	"github.com/papercomputeco/tabula/pkg/config"
)

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		for _, key := range []string{
			config.EnvConfig, config.EnvAPIKey, config.EnvBaseURL, config.EnvModel,
			config.EnvURL, config.EnvCacheDir, config.EnvListen, config.EnvWorkbook, config.EnvDebug,
		} {
			GinkgoT().Setenv(key, "")
		}
		// No stray ~/.tabula/config.toml.
		GinkgoT().Setenv("HOME", dir)
	})

	write := func(body string) string {
		path := filepath.Join(dir, "config.toml")
		Expect(os.WriteFile(path, []byte(body), 0o644)).To(Succeed())
		return path
	}

	It("falls back to defaults without a file", func() {
		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.Default()))
		Expect(cfg.Agent.MaxToolRounds).To(Equal(5))
		Expect(cfg.Agent.MaxSessions).To(Equal(1000))
		Expect(cfg.Agent.SessionTTL).To(Equal(24 * time.Hour))
		Expect(cfg.Persona.Name).To(Equal("Diya"))
	})

	It("fails when an explicit file is missing", func() {
		_, err := config.Load(filepath.Join(dir, "absent.toml"))
		Expect(err).To(MatchError(os.ErrNotExist))
	})

	It("reads sections and a catalog override from TOML", func() {
		path := write(`
debug = true

[server]
listen = ":9000"

[oracle]
model = "gpt-4o-mini"
timeout = "30s"

[source]
kind = "xlsx"
workbook = "ops.xlsx"

[[sheets]]
name = "Tasks"
identity = "ID"
fields = ["ID", "Status"]
`)
		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Debug).To(BeTrue())
		Expect(cfg.Server.Listen).To(Equal(":9000"))
		Expect(cfg.Oracle.Model).To(Equal("gpt-4o-mini"))
		Expect(cfg.Oracle.Timeout).To(Equal(30 * time.Second))
		Expect(cfg.Oracle.MaxRetries).To(Equal(3))
		Expect(cfg.Source.Kind).To(Equal(config.SourceXLSX))

		cat, err := cfg.Catalog()
		Expect(err).NotTo(HaveOccurred())
		Expect(cat.Names()).To(Equal([]string{"Tasks"}))
	})

	It("rejects unknown keys", func() {
		path := write("[server]\nlisten = \":1\"\nport = 8000\n")
		_, err := config.Load(path)
		Expect(err).To(MatchError(ContainSubstring("server.port")))
	})

	It("lets the environment override the file", func() {
		path := write("[oracle]\nmodel = \"from-file\"\n")
		GinkgoT().Setenv(config.EnvConfig, path)
		GinkgoT().Setenv(config.EnvModel, "from-env")
		GinkgoT().Setenv(config.EnvAPIKey, "sk-test")
		GinkgoT().Setenv(config.EnvWorkbook, "/data/ops.xlsx")
		GinkgoT().Setenv(config.EnvDebug, "true")

		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Oracle.Model).To(Equal("from-env"))
		Expect(cfg.Oracle.APIKey).To(Equal("sk-test"))
		Expect(cfg.Source.Kind).To(Equal(config.SourceXLSX))
		Expect(cfg.Source.Workbook).To(Equal("/data/ops.xlsx"))
		Expect(cfg.Debug).To(BeTrue())
	})

	Describe("Validate", func() {
		It("requires a source endpoint", func() {
			err := config.Default().Validate()
			Expect(err).To(MatchError(ContainSubstring("source.url")))
		})

		It("reports every problem", func() {
			cfg := config.Default()
			cfg.Source.Kind = "ftp"
			cfg.Oracle.Model = ""
			cfg.LogFormat = "xml"

			Expect(multierr.Errors(cfg.Validate())).To(HaveLen(3))
		})

		It("rejects negative session bounds", func() {
			cfg := config.Default()
			cfg.Source.URL = "https://example.test/exec"
			cfg.Agent.MaxSessions = -1
			cfg.Agent.SessionTTL = -time.Second

			Expect(multierr.Errors(cfg.Validate())).To(HaveLen(2))
		})

		It("accepts a complete remote setup", func() {
			cfg := config.Default()
			cfg.Source.URL = "https://example.test/exec"
			Expect(cfg.Validate()).To(Succeed())
			Expect(cfg.ValidateOracle()).NotTo(Succeed())
		})
	})

	It("uses the main model for selection unless overridden", func() {
		cfg := config.Default()
		Expect(cfg.SelectorModel()).To(Equal("gpt-4.1"))
		cfg.Oracle.SelectorModel = "gpt-4.1-mini"
		Expect(cfg.SelectorModel()).To(Equal("gpt-4.1-mini"))
	})
})
