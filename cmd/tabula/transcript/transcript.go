package transcriptcmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/tabula/cmd/tabula/bootstrap"
)

const transcriptLongDesc string = `Work with recorded conversation transcripts.

Every chat turn is stored as a chain of content-addressed nodes, so
transcript databases from several tabula instances can be combined
without conflicts.`

const transcriptShortDesc string = "Manage transcript databases"

func NewTranscriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: transcriptShortDesc,
		Long:  transcriptLongDesc,
	}

	cmd.AddCommand(NewMergeCmd())
	cmd.AddCommand(NewPushCmd())

	return cmd
}

// resolveDBPath picks the database: the flag, then transcript.db_path from
// the config, then ~/.tabula/transcripts.db.
func resolveDBPath(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return bootstrap.ResolvePath(flagValue), nil
	}
	cfg, err := bootstrap.LoadConfig(cmd)
	if err != nil {
		return "", err
	}
	if p := cfg.Transcript.DBPath; p != "" && p != "off" {
		return bootstrap.ResolvePath(p), nil
	}
	return bootstrap.DefaultTranscriptPath()
}
