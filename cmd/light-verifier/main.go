package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tendermint/light-verifier/cmd/light-verifier/commands"
	"github.com/tendermint/light-verifier/config"
	"github.com/tendermint/light-verifier/libs/cli"
	"github.com/tendermint/light-verifier/libs/log"
)

func main() {
	conf := config.DefaultConfig()

	logger, err := log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := commands.RootCommand(conf, logger)
	rootCmd.AddCommand(
		commands.MakeVerifyCommand(conf, logger),
		commands.MakeServeCommand(conf, logger),
		commands.MakeInitCommand(conf, logger),
		commands.VersionCmd,
	)

	cmd := cli.PrepareBaseCmd(rootCmd, "LV",
		os.ExpandEnv(filepath.Join("$HOME", config.DefaultLightVerifierDir)))
	os.Exit(cli.Execute(cmd))
}
