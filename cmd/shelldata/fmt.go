package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fsnotify/fsnotify"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/mongood/shelldata/shelldata"
	"github.com/mongood/shelldata/stream"
)

var errNotFormatted = errors.New("not formatted")

type fmtMode int

const (
	fmtPrint fmtMode = iota
	fmtCheck
	fmtWrite
)

func fmtRun(c *cli.Command) (err error) {
	eopts := fmtOptions(c)
	popts := cfg.ParseOptions()

	if c.Bool("watch") {
		return watch(c, popts, eopts)
	}

	mode := fmtPrint

	switch {
	case c.Bool("check"):
		mode = fmtCheck
	case c.Bool("write"):
		mode = fmtWrite
	}

	return formatInputs(c, mode, popts, eopts)
}

func formatInputs(c *cli.Command, mode fmtMode, popts shelldata.ParseOptions, eopts shelldata.EmitOptions) (err error) {
	var unformatted int

	err = inputs(c, func(in namedInput) error {
		data, err := io.ReadAll(in.r)
		if err != nil {
			return errors.Wrap(err, "read %v", in.name)
		}

		out, err := formatText(data, popts, eopts)
		if err != nil {
			return errors.Wrap(err, "%v", in.name)
		}

		switch {
		case mode == fmtCheck:
			if !bytes.Equal(data, out) {
				unformatted++
				fmt.Fprintf(stdout, "%s\n", in.name)
			}
		case mode == fmtWrite && in.name != "<stdin>":
			if bytes.Equal(data, out) {
				return nil
			}

			tlog.V("fmt").Printw("rewrite", "file", in.name, "old_size", len(data), "new_size", len(out))

			err = writeFile(in.name, out)
		default:
			_, err = stdout.Write(out)
		}

		return err
	})
	if err != nil {
		return err
	}

	if unformatted != 0 {
		return errors.Wrap(errNotFormatted, "%d file(s)", unformatted)
	}

	return nil
}

// fmtOptions picks emit options. Terminal detection only applies when printing.
func fmtOptions(c *cli.Command) shelldata.EmitOptions {
	pretty := cfg.Format.Pretty

	if f := c.Flag("pretty"); f != nil && f.IsSet {
		pretty = c.Bool("pretty")
	} else if !c.Bool("check") && !c.Bool("write") {
		pretty = prettyOutput(c)
	}

	if !pretty {
		return shelldata.CompactOptions()
	}

	indent := cfg.Format.IndentWidth
	if f := c.Flag("indent"); f != nil && f.IsSet {
		indent = c.Int("indent")
	}

	return shelldata.EmitOptions{Pretty: true, IndentWidth: indent}
}

// formatText rewrites a stream of values canonically.
func formatText(data []byte, popts shelldata.ParseOptions, eopts shelldata.EmitOptions) ([]byte, error) {
	values, err := stream.NewReader(bytes.NewReader(data), stream.WithParseOptions(popts)).ReadAll()
	if err != nil {
		return nil, err
	}

	return formatValues(values, eopts)
}

func formatValues(values []*shelldata.Value, eopts shelldata.EmitOptions) ([]byte, error) {
	var buf bytes.Buffer

	w := stream.NewWriter(&buf)
	if eopts.Pretty {
		w = stream.NewPrettyWriter(&buf, eopts.IndentWidth)
	}

	err := w.WriteAll(values...)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeFile(name string, data []byte) error {
	inf, err := os.Stat(name)
	if err != nil {
		return errors.Wrap(err, "stat")
	}

	err = os.WriteFile(name, data, inf.Mode().Perm())
	if err != nil {
		return errors.Wrap(err, "write %v", name)
	}

	return nil
}

func checkRun(c *cli.Command) (err error) {
	var failed int

	err = inputs(c, func(in namedInput) error {
		r := stream.NewReader(in.r, stream.WithParseOptions(cfg.ParseOptions()))

		_, err := r.ReadAll()
		if err != nil {
			if _, ok := shelldata.ErrorPosition(err); !ok {
				return errors.Wrap(err, "%v", in.name)
			}

			failed++
			fmt.Fprintln(os.Stderr, describeError(in.name, err))

			return nil
		}

		tlog.V("check").Printw("ok", "file", in.name, "values", r.Count())

		return nil
	})
	if err != nil {
		return err
	}

	if failed != 0 {
		return errors.New("%d file(s) with errors", failed)
	}

	return nil
}

// describeError formats a parse error as name:line:column: message.
func describeError(name string, err error) string {
	pos, ok := shelldata.ErrorPosition(err)
	if !ok {
		return fmt.Sprintf("%s: %v", name, err)
	}

	return fmt.Sprintf("%s:%d:%d: %v", name, pos.Line, pos.Column, err)
}

type watcher struct {
	write bool
	popts shelldata.ParseOptions
	eopts shelldata.EmitOptions

	files *stream.Tracker
	out   io.Writer
}

func watch(c *cli.Command, popts shelldata.ParseOptions, eopts shelldata.EmitOptions) (err error) {
	if c.Args.Len() == 0 {
		return errors.New("watch needs files")
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create fs watcher")
	}

	defer func() {
		if e := fs.Close(); err == nil && e != nil {
			err = errors.Wrap(e, "close watcher")
		}
	}()

	w := &watcher{
		write: c.Bool("write"),
		popts: popts,
		eopts: eopts,
		files: stream.NewTracker(),
		out:   stdout,
	}

	for _, a := range c.Args {
		err = fs.Add(a)
		tlog.V("watch").Printw("watch file", "name", a, "err", err)
		if err != nil {
			return errors.Wrap(err, "watch")
		}

		err = w.update(a)
		if err != nil {
			return err
		}
	}

	sigc := make(chan os.Signal, 3)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)

	var ev fsnotify.Event
	for {
		select {
		case ev = <-fs.Events:
		case <-sigc:
			return nil
		case err = <-fs.Errors:
			if err == nil {
				return nil
			}

			return errors.Wrap(err, "watch")
		}

		tlog.V("fsevent").Printw("fs event", "name", ev.Name, "op", ev.Op)

		if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			continue
		}

		if ev.Op&fsnotify.Create != 0 {
			// editors replace files by rename
			_ = fs.Add(ev.Name)
		}

		err = w.update(ev.Name)
		if err != nil {
			return err
		}
	}
}

// update reformats a watched file. Parse errors are reported and the file is left as is.
func (w *watcher) update(name string) error {
	data, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		w.files.Delete(name)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read %v", name)
	}

	values, err := stream.NewReader(bytes.NewReader(data), stream.WithParseOptions(w.popts)).ReadAll()
	if err != nil {
		tlog.Printw("parse error", "file", name, "err", err)
		fmt.Fprintln(os.Stderr, describeError(name, err))

		return nil
	}

	if !w.files.Observe(name, shelldata.Array(values...)) {
		tlog.V("watch").Printw("unchanged", "file", name)
		return nil
	}

	out, err := formatValues(values, w.eopts)
	if err != nil {
		return errors.Wrap(err, "format %v", name)
	}

	state := w.files.Get(name)

	tlog.V("watch").Printw("changed", "file", name, "revision", state.Revision, "hash", stream.HashToHex(state.StateHash)[:12])

	if !w.write {
		_, err = w.out.Write(out)
		if err != nil {
			return errors.Wrap(err, "write output")
		}

		return nil
	}

	if bytes.Equal(data, out) {
		return nil
	}

	return writeFile(name, out)
}
