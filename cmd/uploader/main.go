package main

import (
	"fmt"
	"os"

	"github.com/mx-space/paste-uploader/internal/config"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "uploader",
		Usage: "paste images into Markdown notes and host them on a Chevereto-compatible image service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultConfigPath,
				Usage:   "path to YAML config file",
				EnvVars: []string{"UPLOADER_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			pasteCommand(),
			uploadCommand(),
			settingsCommand(),
			pendingCommand(),
			serveCommand(),
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
