package main

import (
	"bytes"
	"fmt"
	"io"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"

	"github.com/mongood/shelldata/shelldata"
	"github.com/mongood/shelldata/stream"
)

func toJSONRun(c *cli.Command) error {
	mode := shelldata.Canonical
	if c.Bool("relaxed") {
		mode = shelldata.Relaxed
	}

	return writeExtJSON(c, mode)
}

func writeExtJSON(c *cli.Command, mode shelldata.ExtJSONMode) error {
	return inputs(c, func(in namedInput) error {
		r := stream.NewReader(in.r, stream.WithParseOptions(cfg.ParseOptions()))

		for {
			v, err := r.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return errors.New("%s", describeError(in.name, err))
			}

			data := append(shelldata.ToExtJSON(v, mode), '\n')

			_, err = stdout.Write(data)
			if err != nil {
				return errors.Wrap(err, "write")
			}
		}
	})
}

func fromJSONRun(c *cli.Command) error {
	eopts := shelldata.CompactOptions()
	if prettyOutput(c) {
		eopts = shelldata.EmitOptions{Pretty: true, IndentWidth: cfg.Format.IndentWidth}
	}

	return renderExtJSON(c, eopts)
}

func renderExtJSON(c *cli.Command, eopts shelldata.EmitOptions) error {
	return inputs(c, func(in namedInput) error {
		values, err := stream.NewReader(in.r).ReadAll()
		if err != nil {
			return errors.New("%s", describeError(in.name, err))
		}

		for i, v := range values {
			values[i], err = shelldata.ConvertExtJSON(v)
			if err != nil {
				return errors.Wrap(err, "%v: value %d", in.name, i)
			}
		}

		out, err := formatValues(values, eopts)
		if err != nil {
			return err
		}

		_, err = stdout.Write(out)
		if err != nil {
			return errors.Wrap(err, "write")
		}

		return nil
	})
}

func hashRun(c *cli.Command) error {
	return inputs(c, func(in namedInput) error {
		values, err := stream.NewReader(in.r, stream.WithParseOptions(cfg.ParseOptions())).ReadAll()
		if err != nil {
			return errors.New("%s", describeError(in.name, err))
		}

		var buf bytes.Buffer

		for _, v := range values {
			fmt.Fprintf(&buf, "sha256:%s  %s\n", stream.HashToHex(stream.StateHash(v)), in.name)
		}

		_, err = stdout.Write(buf.Bytes())
		if err != nil {
			return errors.Wrap(err, "write")
		}

		return nil
	})
}
