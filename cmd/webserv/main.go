// Command webserv is the event-driven HTTP/1.1 server's entry point: a
// single spf13/cobra command taking one positional argument, the path to
// a configuration file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nabbar/webserv/internal/config"
	liberr "github.com/nabbar/webserv/internal/errors"
	"github.com/nabbar/webserv/internal/logging"
	"github.com/nabbar/webserv/internal/server"
)

var (
	flagLogLevel  string
	flagLogFormat string
	flagTestOnly  bool
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webserv <config-file>",
		Short: "An event-driven HTTP/1.1 server",
		Long:  "webserv parses a single nginx-style configuration file and serves the servers it describes from one reactor-driven event loop.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&flagLogFormat, "log-format", "text", "log format: text or json")
	cmd.Flags().BoolVar(&flagTestOnly, "test-config", false, "parse and validate the config file, then exit")

	return cmd
}

func run(configPath string) error {
	log := logging.New(logging.Options{Level: parseLevel(flagLogLevel), JSON: flagLogFormat == "json"})

	servers, err := config.LoadFile(configPath)
	if err != nil {
		if ce, ok := err.(*liberr.ConfigError); ok {
			fmt.Fprintf(os.Stderr, "%s\n", ce.Error())
		} else {
			fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		}
		return err
	}

	if flagTestOnly {
		log.Info("configuration file is valid")
		return nil
	}

	srv, err := server.New(servers, log)
	if err != nil {
		log.Error("failed to start: " + err.Error())
		return err
	}

	ctx := server.WaitForShutdownSignal(context.Background())
	log.Info("serving")
	return srv.Run(ctx)
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.DebugLevel
	case "warn":
		return logging.WarnLevel
	case "error":
		return logging.ErrorLevel
	default:
		return logging.InfoLevel
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}
