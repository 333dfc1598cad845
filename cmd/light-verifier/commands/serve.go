package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tendermint/light-verifier/config"
	"github.com/tendermint/light-verifier/libs/log"
	"github.com/tendermint/light-verifier/light"
	"github.com/tendermint/light-verifier/rpc"
)

// AddServeFlags exposes the server settings as flags. The flag names are the
// config keys, so viper merges them into the config.
func AddServeFlags(cmd *cobra.Command, conf *config.Config) {
	cmd.Flags().String("rpc.laddr", conf.RPC.ListenAddress, "RPC listen address. Port required")
	cmd.Flags().Int("rpc.max-open-connections", conf.RPC.MaxOpenConnections,
		"maximum number of simultaneous connections, 0 for no limit")
	cmd.Flags().Bool("instrumentation.prometheus", conf.Instrumentation.Prometheus,
		"serve Prometheus metrics on /metrics")
}

// MakeServeCommand constructs the command that serves verification over HTTP
// until interrupted.
func MakeServeCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Serve light block verification over HTTP",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runServer(ctx, conf, logger)
		},
	}

	AddServeFlags(cmd, conf)
	return cmd
}

func runServer(ctx context.Context, conf *config.Config, logger log.Logger) error {
	options := []light.VerifierOption{
		light.Logger(logger.With("module", "light")),
		light.SignatureConcurrency(conf.Verifier.SignatureConcurrency),
	}
	if conf.Instrumentation.Prometheus {
		options = append(options,
			light.WithMetrics(light.PrometheusMetrics(conf.Instrumentation.Namespace)))
	}

	env, err := rpc.NewEnvironment(conf, light.NewVerifier(options...), logger)
	if err != nil {
		return err
	}

	listener, done, err := env.StartService(ctx, conf)
	if err != nil {
		return err
	}
	logger.Info("started light verifier", "addr", listener.Addr(), "prometheus", conf.Instrumentation.Prometheus)

	return <-done
}
