package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var (
		brokers []string
		topic   string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Consume meter readings from Kafka",
		Long:  "Consume meter readings from Kafka and store them in batches until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			cfg.Kafka.Enabled = true
			if len(brokers) > 0 {
				cfg.Kafka.Brokers = brokers
			}
			if topic != "" {
				cfg.Kafka.Topic = topic
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mgr, err := opts.manager(ctx)
			if err != nil {
				return err
			}
			defer closeManager(cmd, mgr)

			if err := mgr.RunIngest(ctx); err != nil && !errors.Is(err, ctx.Err()) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&brokers, "brokers", nil, "Kafka brokers (overrides kafka.brokers)")
	cmd.Flags().StringVar(&topic, "topic", "", "Kafka topic (overrides kafka.topic)")
	return cmd
}
