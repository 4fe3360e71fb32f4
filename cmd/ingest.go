package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/pilosa/datalake/ingest"
	"github.com/spf13/cobra"
)

// IngestMain is the configuration of the ingest command.
var IngestMain *ingest.Main

// NewIngestCommand returns the ingest command, which serves stream events as
// a Lambda function or handles one event from a file.
func NewIngestCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	IngestMain = ingest.NewMain()
	IngestMain.Stdin = stdin
	IngestMain.Stdout = stdout
	ingestCommand := &cobra.Command{
		Use:   "ingest",
		Short: "ingest - write stream records to the raw zone",
		Long: `Decodes each record of a Kinesis stream event and writes its JSON payload
to raw/YYYY/MM/DD/HH/MM/SS/<partition key>.json in the raw bucket.

Without --event-file, serves Lambda invocations. With it, handles the one
event in the file (or stdin for '-') and prints the response.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return IngestMain.Run(cmd.Context())
		},
	}
	flags := ingestCommand.Flags()
	err = commandeer.Flags(flags, IngestMain)
	if err != nil {
		panic(err)
	}
	return ingestCommand
}

func init() {
	subcommandFns["ingest"] = NewIngestCommand
}
