// Command userhost drives programs against a simulated EVM host.
//
//	userhost run --script session.yaml [--trace trace.db] [--metrics]
//	userhost run -i [--script session.yaml]
//	userhost replay --trace trace.db
//	userhost schema
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/userhost/bridge"
	"github.com/wippyai/userhost/engine"
	"github.com/wippyai/userhost/host"
	"github.com/wippyai/userhost/program"
)

var Version = "0.1.0"

var (
	cmdRun = cli.Command{
		Name:  "run",
		Usage: "run a session script",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "script, s",
				Usage: "Load the session from `FILE`",
			},
			cli.StringFlag{
				Name:  "trace, t",
				Usage: "Record served requests to `DB`",
			},
			cli.BoolFlag{
				Name:  "metrics",
				Usage: "print request metrics after the run",
			},
			cli.UintFlag{
				Name:  "memory-limit",
				Usage: "maximum pages per user module",
			},
			cli.UintFlag{
				Name:  "max-depth",
				Usage: "maximum program call depth",
				Value: defaultMaxDepth,
			},
			cli.BoolFlag{
				Name:  "i",
				Usage: "interactive mode with TUI",
			},
		},
		Action: func(c *cli.Context) error {
			st := newStyles(colorEnabled(os.Stdout, c.GlobalBool("no-color")))

			var script *Script
			if path := c.String("script"); path != "" {
				s, err := LoadScript(path)
				if err != nil {
					return err
				}
				script = s
			}
			if c.Bool("i") {
				return runInteractive(st, script)
			}
			if script == nil {
				return cli.NewExitError("run: --script is required without -i", 1)
			}
			return runScript(context.Background(), os.Stdout, st, script, runOptions{
				tracePath:   c.String("trace"),
				metrics:     c.Bool("metrics"),
				memoryLimit: uint32(c.Uint("memory-limit")),
				maxDepth:    uint32(c.Uint("max-depth")),
			})
		},
	}

	cmdReplay = cli.Command{
		Name:  "replay",
		Usage: "list the requests recorded in a trace",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "trace, t",
				Usage: "Read the trace from `DB`",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.String("trace")
			if path == "" {
				return cli.NewExitError("replay: --trace is required", 1)
			}
			return replay(os.Stdout, newStyles(colorEnabled(os.Stdout, c.GlobalBool("no-color"))), path)
		},
	}

	cmdSchema = cli.Command{
		Name:  "schema",
		Usage: "print the JSON Schema of session scripts",
		Action: func(c *cli.Context) error {
			out, err := json.MarshalIndent(ScriptSchema(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "userhost"
	app.Version = Version
	app.Usage = "run user programs against a simulated EVM host"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "log-level, l",
			Usage: "log level: debug, info, warn, error",
			Value: "warn",
		},
		cli.BoolFlag{
			Name:  "no-color",
			Usage: "disable coloured output",
		},
	}
	app.Commands = []cli.Command{
		cmdRun,
		cmdReplay,
		cmdSchema,
	}
	app.Before = func(c *cli.Context) error {
		return configureLogging(c.GlobalString("log-level"))
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configureLogging installs one stderr logger in every package that logs.
func configureLogging(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	bridge.SetLogger(l.Named("bridge"))
	program.SetLogger(l.Named("program"))
	host.SetLogger(l.Named("host"))
	engine.SetLogger(l.Named("engine"))
	return nil
}
