// Command ingest-lambda is the Lambda bootstrap for the ingest handler. It is
// configured by environment variables only (RAW_BUCKET, STORE_BACKEND, ...).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pilosa/datalake/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	rootCmd.SetArgs([]string{"ingest"})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
