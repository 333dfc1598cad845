package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tendermint/light-verifier/config"
	"github.com/tendermint/light-verifier/libs/log"
)

// MakeInitCommand constructs the command that writes the default config
// file into the home directory. An existing file is checked, not replaced.
func MakeInitCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the light verifier home directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initFiles(conf, logger)
		},
	}
}

func initFiles(conf *config.Config, logger log.Logger) error {
	cfgFile := conf.ConfigFile()
	if _, err := os.Stat(cfgFile); err == nil {
		if _, err := config.LoadFile(cfgFile); err != nil {
			return fmt.Errorf("invalid config file %s: %w", cfgFile, err)
		}
		logger.Info("found config file", "path", cfgFile)
		return nil
	}

	if err := config.EnsureRoot(conf.RootDir); err != nil {
		return err
	}
	if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
		return err
	}
	logger.Info("generated config file", "path", cfgFile)
	return nil
}
