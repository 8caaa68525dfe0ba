// Package cli provides the command-line interface for recognizer.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config.yaml (default: config.yaml in the working directory)",
		EnvVars: []string{"RECOGNIZER_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "driver",
		Aliases: []string{"d"},
		Usage:   "Browser driver (chromedp, rod, mock)",
		EnvVars: []string{"RECOGNIZER_DRIVER"},
	},
	&cli.StringFlag{
		Name:    "debugger-url",
		Usage:   "DevTools websocket URL of a running browser",
		EnvVars: []string{"RECOGNIZER_DEBUGGER_URL"},
	},
	&cli.StringFlag{
		Name:    "app-map",
		Aliases: []string{"m"},
		Usage:   "Application map file (YAML)",
		EnvVars: []string{"RECOGNIZER_APP_MAP"},
	},
	&cli.StringFlag{
		Name:    "strategy",
		Usage:   "Attribute matching strategy (compat, exact, partial)",
		EnvVars: []string{"RECOGNIZER_STRATEGY"},
	},
	&cli.StringSliceFlag{
		Name:  "page",
		Usage: "HTML file opened as a window by the mock driver (repeatable)",
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable verbose logging",
		EnvVars: []string{"RECOGNIZER_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Log file path (- for stderr, off to disable; default $RECOGNIZER_HOME/logs/recognizer.log)",
		EnvVars: []string{"RECOGNIZER_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:  "json",
		Usage: "Print results as JSON",
	},
}

// Commands lists every subcommand.
var Commands = []*cli.Command{
	parseCommand,
	resolveCommand,
	attrCommand,
	locatorsCommand,
	windowsCommand,
}

// NewApp builds the CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "recognizer",
		Usage:   "Resolve application-map recognition strings against a live browser",
		Version: Version,
		Description: `recognizer turns recognition strings such as
  Type=HTMLFrame;name=content;\;Type=PushButton;text=Sign in
into absolute element locators on the page a browser is showing,
following nested frames and retrying until the element appears.

Examples:
  recognizer parse 'Type=HTMLFrame;name=content;\;Type=EditBox;name=user'
  recognizer --app-map app.yaml resolve --timeout 20s Shop Submit
  recognizer --debugger-url ws://127.0.0.1:9222/devtools/browser/ID locators INPUT
  recognizer --driver mock --page login.html --app-map app.yaml attr Shop User value`,
		Flags:    GlobalFlags,
		Commands: Commands,
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
