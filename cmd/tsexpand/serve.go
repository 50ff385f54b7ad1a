package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/d-kimuson/ts-type-expand/internal/server"
	"github.com/d-kimuson/ts-type-expand/internal/watch"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port    int
		host    string
		noWatch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve type descriptions to an editor over HTTP",
		Long:  "Loads the project, watches it for changes and serves the extension endpoints until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !cmd.Flags().Changed("port") {
				port = a.cfg.Port
			}
			l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
			if err != nil {
				return fmt.Errorf("listening on %s:%d: %w", host, port, err)
			}
			return a.serve(ctx, l, !noWatch)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default: config port)")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "listen address")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload on file changes")
	return cmd
}

// serve runs the HTTP server on l until ctx is done.
func (a *app) serve(ctx context.Context, l net.Listener, watchFiles bool) error {
	e, err := a.loadEngine(ctx, false)
	if err != nil {
		l.Close()
		return err
	}
	defer e.Close()

	if watchFiles {
		w, err := watch.New(a.root, e, watch.Options{Logger: a.logger})
		if err != nil {
			l.Close()
			return err
		}
		if err := w.Start(ctx); err != nil {
			l.Close()
			return err
		}
		defer w.Close()
	}

	a.logger.Info("serving", "root", a.root, "files", e.Snapshot().Len(), "watch", watchFiles)
	return server.New(e, server.WithLogger(a.logger)).Serve(ctx, l)
}
