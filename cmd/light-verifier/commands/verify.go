package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tendermint/light-verifier/config"
	"github.com/tendermint/light-verifier/libs/log"
	"github.com/tendermint/light-verifier/light"
	"github.com/tendermint/light-verifier/types"
)

// ExitCodeRejected is the exit code of a verify run whose verdict is not
// Success.
const ExitCodeRejected = 2

// ErrRejected is returned by the verify command when the untrusted block can
// not be trusted.
type ErrRejected struct {
	Verdict light.Verdict
}

func (e ErrRejected) Error() string {
	return fmt.Sprintf("light block rejected: %v", e.Verdict)
}

// ExitCode implements cli.ExitCoder.
func (e ErrRejected) ExitCode() int { return ExitCodeRejected }

// MakeVerifyCommand constructs the command that verifies one light block
// against another and prints the Verdict as JSON.
func MakeVerifyCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var (
		untrustedPath string
		trustedPath   string
		nowStr        string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an untrusted light block against a trusted one",
		Long: `Verify decides whether the untrusted light block can be trusted given
the trusted one and prints the verdict as JSON. Light blocks are read from
JSON files; "-" reads standard input.

The command exits with 0 when the block can be trusted, 2 when it can't and
1 on any other error.`,
		Example: `light-verifier verify --trusted trusted.json --untrusted untrusted.json
light-verifier verify --trusted trusted.json --untrusted - --now 2021-01-01T00:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := verifierOptions(cmd, conf.Verifier)
			if err != nil {
				return err
			}

			now := time.Now()
			if nowStr != "" {
				now, err = time.Parse(time.RFC3339Nano, nowStr)
				if err != nil {
					return fmt.Errorf("--now: %w", err)
				}
			}

			untrusted, err := readLightBlock(cmd, untrustedPath)
			if err != nil {
				return fmt.Errorf("untrusted: %w", err)
			}
			trusted, err := readLightBlock(cmd, trustedPath)
			if err != nil {
				return fmt.Errorf("trusted: %w", err)
			}

			verifier := light.NewVerifier(
				light.Logger(logger.With("module", "light")),
				light.SignatureConcurrency(conf.Verifier.SignatureConcurrency),
			)
			verdict, err := verifier.Verify(cmd.Context(), untrusted, trusted, opts, now)
			if err != nil {
				return err
			}

			bz, err := json.MarshalIndent(verdict, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bz))

			if !verdict.OK() {
				return ErrRejected{Verdict: verdict}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&untrustedPath, "untrusted", "", "light block to verify (JSON file, - for stdin)")
	cmd.Flags().StringVar(&trustedPath, "trusted", "", "trusted light block (JSON file, - for stdin)")
	cmd.Flags().StringVar(&nowStr, "now", "", "local time as RFC 3339 (default: the current time)")
	cmd.Flags().String("trust-level", conf.Verifier.TrustLevel,
		"share of the trusted validators that must sign a non-adjacent block")
	cmd.Flags().Duration("trusting-period", conf.Verifier.TrustingPeriod, "how long the trusted block can be used")
	cmd.Flags().Duration("max-clock-drift", conf.Verifier.MaxClockDrift,
		"how far the untrusted block may be ahead of the local time")
	_ = cmd.MarkFlagRequired("untrusted")
	_ = cmd.MarkFlagRequired("trusted")

	return cmd
}

// verifierOptions applies the flags set on the command line over the
// configured verifier parameters.
func verifierOptions(cmd *cobra.Command, vc *config.VerifierConfig) (light.Options, error) {
	vc = &config.VerifierConfig{
		TrustLevel:           vc.TrustLevel,
		TrustingPeriod:       vc.TrustingPeriod,
		MaxClockDrift:        vc.MaxClockDrift,
		SignatureConcurrency: vc.SignatureConcurrency,
	}

	flags := cmd.Flags()
	var err error
	if flags.Changed("trust-level") {
		if vc.TrustLevel, err = flags.GetString("trust-level"); err != nil {
			return light.Options{}, err
		}
	}
	if flags.Changed("trusting-period") {
		if vc.TrustingPeriod, err = flags.GetDuration("trusting-period"); err != nil {
			return light.Options{}, err
		}
	}
	if flags.Changed("max-clock-drift") {
		if vc.MaxClockDrift, err = flags.GetDuration("max-clock-drift"); err != nil {
			return light.Options{}, err
		}
	}
	return vc.Options()
}

func readLightBlock(cmd *cobra.Command, path string) (*types.LightBlock, error) {
	var (
		bz  []byte
		err error
	)
	if path == "-" {
		bz, err = io.ReadAll(cmd.InOrStdin())
	} else {
		bz, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return types.DecodeLightBlock(bz)
}
