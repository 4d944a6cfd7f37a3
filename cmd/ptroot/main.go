// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/ptroot/config"
	"github.com/bureau-foundation/ptroot/lib/process"
	"github.com/bureau-foundation/ptroot/lib/version"
	"github.com/bureau-foundation/ptroot/preflight"
	"github.com/bureau-foundation/ptroot/tracer"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runCmd(args)
	case "validate":
		err = validateCmd(args)
	case "version", "--version", "-v":
		version.Print("ptroot")
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		process.Fatal(err)
	}
}

// exitError carries a guest exit code through the error return of a
// subcommand without treating it as a ptroot failure.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("guest exited with code %d", e.code)
}

// newLogger builds the structured logger. Text output on a terminal,
// JSON when stderr is piped, matching the daemon log format.
func newLogger(verbose bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose || os.Getenv("PTROOT_DEBUG") != "" {
		options.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// configFlags registers the flags shared by run and validate and
// returns the loader that assembles the final configuration after
// parsing.
func configFlags(flagSet *pflag.FlagSet) func() (*config.Config, error) {
	configPath := flagSet.String("config", "", "load configuration from a YAML file")
	rootfs := flagSet.StringP("rootfs", "r", "", "host directory to present as the guest root")
	binds := flagSet.StringArrayP("bind", "b", nil, "extra binding host:guest[:ro], repeatable")
	workdir := flagSet.StringP("cwd", "w", "", "initial guest working directory")
	maxPath := flagSet.Int("max-path", 0, "maximum translated path length")
	maxSymlinks := flagSet.Int("max-symlinks", 0, "maximum symlink dereferences per path")
	noInterp := flagSet.Bool("no-interpreter-emulation", false, "pass script execs through untouched")
	killOnExit := flagSet.Bool("kill-on-exit", false, "kill all guest processes when ptroot dies")
	verbose := flagSet.Bool("verbose", false, "log every path translation")

	return func() (*config.Config, error) {
		cfg := config.Default()
		if *configPath != "" {
			loaded, err := config.Load(*configPath)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
		if *rootfs != "" {
			cfg.Rootfs = *rootfs
		}
		for _, spec := range *binds {
			b, err := config.ParseBinding(spec)
			if err != nil {
				return nil, err
			}
			cfg.Bindings = append(cfg.Bindings, b)
		}
		if *workdir != "" {
			cfg.WorkingDir = *workdir
		}
		if *maxPath > 0 {
			cfg.MaxPathLength = *maxPath
		}
		if *maxSymlinks > 0 {
			cfg.MaxSymlinkDepth = *maxSymlinks
		}
		if *noInterp {
			cfg.InterpreterEmulation = false
		}
		if *killOnExit {
			cfg.KillOnExit = true
		}
		if *verbose {
			cfg.Verbose = true
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
}

// runCmd implements the "run" command.
func runCmd(args []string) error {
	flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
	load := configFlags(flagSet)
	flagSet.Usage = func() {
		fmt.Fprint(os.Stderr, `ptroot run - Run a command inside the guest view

USAGE
    ptroot run [flags] -- <command> [args...]

FLAGS
`)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	command := flagSet.Args()
	if len(command) == 0 {
		return fmt.Errorf("command is required after --")
	}

	cfg, err := load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Verbose)

	code, err := tracer.New(cfg, logger).Run(command)
	if err != nil {
		return err
	}
	if code != 0 {
		return exitError{code: code}
	}
	return nil
}

// validateCmd implements the "validate" command.
func validateCmd(args []string) error {
	flagSet := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	load := configFlags(flagSet)
	flagSet.Usage = func() {
		fmt.Fprint(os.Stderr, `ptroot validate - Check the host setup without running anything

USAGE
    ptroot validate [flags] [-- <command> [args...]]

FLAGS
`)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := load()
	if err != nil {
		return err
	}

	validator := preflight.NewValidator()
	validator.ValidateAll(cfg, flagSet.Args())
	validator.PrintResults(os.Stdout)
	if validator.HasErrors() {
		return exitError{code: 1}
	}
	return nil
}

func printUsage() {
	fmt.Print(`ptroot - Run commands under an unprivileged chroot-like view

USAGE
    ptroot <command> [flags] [-- <args>...]

COMMANDS
    run      Run a command with its filesystem view rewritten
    validate Check ptrace permissions, rootfs, and bindings
    version  Show version

EXAMPLES
    # Run a shell inside an extracted rootfs
    ptroot run -r /srv/alpine -- /bin/sh

    # Bind the host /proc and a data directory into the guest
    ptroot run -r /srv/alpine -b /proc -b /srv/data:/data -- /bin/ls /data

    # Make a binding read-only
    ptroot run -r /srv/alpine -b /srv/assets:/assets:ro -- /bin/sh

    # Check the setup first
    ptroot validate -r /srv/alpine -- /bin/sh

For more information, see: https://github.com/bureau-foundation/ptroot
`)
}
