package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/pilosa/datalake/kafkagen"
	"github.com/spf13/cobra"
)

// KafkagenMain is the configuration of the kafkagen command.
var KafkagenMain *kafkagen.Main

// NewKafkagenCommand returns the kafkagen command.
func NewKafkagenCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	KafkagenMain = kafkagen.NewMain()
	command := &cobra.Command{
		Use:   "kafkagen",
		Short: "kafkagen - put fake clickstream events into kafka",
		Long: `Produces generated clickstream events as JSON to a Kafka topic, for
trying out the kafka and curate commands locally.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return KafkagenMain.Run(cmd.Context())
		},
	}
	if err := commandeer.Flags(command.Flags(), KafkagenMain); err != nil {
		panic(err)
	}
	return command
}

func init() {
	subcommandFns["kafkagen"] = NewKafkagenCommand
}
