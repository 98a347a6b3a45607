package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/thywilljoshua/pdf-to-docx/internal/server"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var images bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload form and conversion endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := newConverter(cmd.Context(), images)
			if err != nil {
				return err
			}
			srv := server.New(conv, server.Options{
				TempDir:     cfg.TempDir,
				BodyLimitMB: cfg.Server.BodyLimitMB,
				Log:         log,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- srv.Listen(cfg.Server.Addr) }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			log.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("addr", ":8501", "listen address")
	cmd.Flags().BoolVar(&images, "images", true, "embed images found on text-mode pages")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
