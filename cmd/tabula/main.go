package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tabula/cmd/tabula/bootstrap"
	catalogcmder "github.com/papercomputeco/tabula/cmd/tabula/catalog"
	chatcmder "github.com/papercomputeco/tabula/cmd/tabula/chat"
	mcpcmder "github.com/papercomputeco/tabula/cmd/tabula/mcp"
	servecmder "github.com/papercomputeco/tabula/cmd/tabula/serve"
	transcriptcmder "github.com/papercomputeco/tabula/cmd/tabula/transcript"
	updatecmder "github.com/papercomputeco/tabula/cmd/tabula/update"
)

const tabulaLongDesc string = `tabula answers questions about an operations workbook.

For each message it picks the relevant sheets and fields, loads them
from the local cache or the sheet backend, and has a language model
answer strictly from that data.

Configuration is read from ~/.tabula/config.toml (or --config), then
from OPENAI_API_KEY, OPENAI_BASE_URL, TABULA_MODEL, APPS_SCRIPT_URL,
TABULA_CACHE_DIR, TABULA_LISTEN and TABULA_WORKBOOK.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tabula",
		Short:        "Spreadsheet question answering agent",
		Long:         tabulaLongDesc,
		SilenceUsage: true,
	}

	bootstrap.AddFlags(cmd)

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(updatecmder.NewUpdateCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(catalogcmder.NewCatalogCmd())
	cmd.AddCommand(mcpcmder.NewMCPCmd())
	cmd.AddCommand(transcriptcmder.NewTranscriptCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
