// shelldata - shell literal text formatter and converter
//
// Usage:
//
//	shelldata fmt [--pretty] [--indent N] [--check] [--write] [--watch] {file}
//	shelldata check {file}
//	shelldata to-json [--relaxed] {file}
//	shelldata from-json {file}
//	shelldata hash {file}
//	shelldata serve [--addr ADDR]
//
// Files hold any number of values separated by whitespace.
// If no file is given, reads from stdin.
package main

import (
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"golang.org/x/term"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/ext/tlflag"

	"github.com/mongood/shelldata/config"
)

var (
	cfg = config.Default()

	stdout io.Writer = os.Stdout
)

func main() {
	cli.RunAndExit(App(), os.Args, os.Environ())
}

func App() *cli.Command {
	fmtCmd := &cli.Command{
		Name:        "fmt,format,f",
		Description: "rewrite values in canonical form",
		Action:      fmtRun,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("pretty,p", false, "indent output (default: when stdout is a terminal)"),
			cli.NewFlag("indent", 2, "spaces per indent level"),
			cli.NewFlag("check", false, "fail if any file is not canonical"),
			cli.NewFlag("write,w", false, "write result back to the file"),
			cli.NewFlag("watch", false, "reformat files on every change until terminated"),
		},
	}

	app := &cli.Command{
		Name:        "shelldata",
		Description: "shell literal text formatter and converter",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("config,c", "", "config file (yaml)"),
			cli.NewFlag("log", "stderr?dm", "log output file (or stderr)"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.FlagfileFlag,
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			fmtCmd,
			{
				Name:        "check",
				Description: "parse files and report errors with their position",
				Action:      checkRun,
				Args:        cli.Args{},
			},
			{
				Name:        "to-json,json",
				Description: "convert values to Extended JSON, one per line",
				Action:      toJSONRun,
				Args:        cli.Args{},
				Flags: []*cli.Flag{
					cli.NewFlag("relaxed,r", false, "relaxed Extended JSON"),
				},
			},
			{
				Name:        "from-json",
				Description: "convert Extended JSON values to literal text",
				Action:      fromJSONRun,
				Args:        cli.Args{},
				Flags: []*cli.Flag{
					cli.NewFlag("pretty,p", false, "indent output (default: when stdout is a terminal)"),
				},
			},
			{
				Name:        "hash",
				Description: "print the state hash of every value",
				Action:      hashRun,
				Args:        cli.Args{},
			},
			{
				Name:        "serve",
				Description: "run http server",
				Action:      serveRun,
				Flags: []*cli.Flag{
					cli.NewFlag("addr,a", "", "listen address (default from config)"),
				},
			},
		},
	}

	return app
}

func before(c *cli.Command) (err error) {
	w, err := tlflag.OpenWriter(c.String("log"))
	if err != nil {
		return errors.Wrap(err, "open log file")
	}

	tlog.DefaultLogger = tlog.New(w)

	tlog.SetVerbosity(c.String("verbosity"))

	cfg, err = config.Load(c.String("config"))
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if !tlog.If("gin") {
		gin.SetMode(gin.ReleaseMode)
	}

	return nil
}

// prettyOutput decides indentation: an explicit flag wins, then the config, then a terminal stdout.
func prettyOutput(c *cli.Command) bool {
	if f := c.Flag("pretty"); f != nil && f.IsSet {
		return c.Bool("pretty")
	}

	if cfg.Format.Pretty {
		return true
	}

	return term.IsTerminal(int(os.Stdout.Fd()))
}

type namedInput struct {
	name string
	r    io.ReadCloser
}

// inputs opens the command arguments, or stdin if there are none.
func inputs(c *cli.Command, f func(in namedInput) error) error {
	if c.Args.Len() == 0 {
		return f(namedInput{name: "<stdin>", r: io.NopCloser(os.Stdin)})
	}

	for _, a := range c.Args {
		if a == "-" {
			if err := f(namedInput{name: "<stdin>", r: io.NopCloser(os.Stdin)}); err != nil {
				return err
			}

			continue
		}

		file, err := os.Open(a)
		if err != nil {
			return errors.Wrap(err, "open")
		}

		err = f(namedInput{name: a, r: file})

		if e := file.Close(); err == nil && e != nil {
			err = errors.Wrap(e, "close %v", a)
		}

		if err != nil {
			return err
		}
	}

	return nil
}
