package main

import (
	"context"
	"net"

	"nikand.dev/go/cli"
	"nikand.dev/go/graceful"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/mongood/shelldata/server"
)

func serveRun(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	addr := cfg.Server.Addr
	if q := c.String("addr"); q != "" {
		addr = q
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "listen http: %v", addr)
	}

	tlog.Printw("listen http", "addr", l.Addr())

	s := server.New(cfg)

	g := graceful.New()

	g.Add(func(ctx context.Context) (err error) {
		err = s.Serve(ctx, l)
		if err == nil || errors.Is(err, net.ErrClosed) {
			return nil
		}

		return errors.Wrap(err, "serve http")
	}, graceful.WithStop(func(ctx context.Context) error {
		return l.Close()
	}))

	return g.Run(ctx, graceful.IgnoreErrors(context.Canceled))
}
