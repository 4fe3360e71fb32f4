package cmd

import (
	"io"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/pilosa/datalake/curate"
	"github.com/spf13/cobra"
)

// CurateMain is the configuration of the curate command.
var CurateMain *curate.Main

// NewCurateCommand returns the curate command.
func NewCurateCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	CurateMain = curate.NewMain()
	curateCommand := &cobra.Command{
		Use:   "curate",
		Short: "curate - curate the raw zone into Parquet and the warehouse",
		Long: `Reads every JSON document under raw/ in the raw bucket, keeps the
timestamp, user_id, event_type and data fields, writes them as Snappy
compressed Parquet partitioned by year, month and day under curated/ in the
curated bucket, and loads them into the warehouse table with COPY.

Each run reads the whole raw zone. Running twice writes the rows twice.

Parameters may be given as --JOB_NAME, --RAW_BUCKET, --CURATED_BUCKET,
--REDSHIFT_DATABASE and --REDSHIFT_TABLE. Other arguments a batch job runner
adds are ignored.`,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := CurateMain.Run(cmd.Context()); err != nil {
				return err
			}
			cmd.Printf("Done: %v\n", time.Since(start))
			return nil
		},
	}
	flags := curateCommand.Flags()
	err = commandeer.Flags(flags, CurateMain)
	if err != nil {
		panic(err)
	}
	return curateCommand
}

func init() {
	subcommandFns["curate"] = NewCurateCommand
}
