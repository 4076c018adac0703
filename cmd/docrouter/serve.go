package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/documentrouter/internal/metrics"
	"github.com/Lllllllleong/documentrouter/internal/services"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the intake endpoint and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := services.NewRuntime(ctx, root.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			var opts []services.IntakeOption
			if root.cfg.Storage.ResultsBucket != "" {
				objects, err := rt.Objects(ctx)
				if err != nil {
					return err
				}
				opts = append(opts, services.WithObjectStore(objects, root.cfg.Storage.ResultsBucket, root.cfg.Storage.ResultsPrefix))
			}
			if rt.Workflow != nil {
				opts = append(opts, services.WithHandoff(rt.Workflow))
			}
			intake := services.NewIntakeFunction(rt.Dispatcher, opts...)

			if addr == "" {
				addr = fmt.Sprintf(":%d", root.cfg.Metrics.Port)
			}
			server := &http.Server{
				Addr:         addr,
				Handler:      newServeMux(intake, rt),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 5 * time.Minute,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("Intake server listening", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			slog.Info("Shutting down intake server")
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :<metrics.port>)")
	return cmd
}

func newServeMux(intake http.Handler, rt *services.Runtime) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/intake", intake)
	mux.Handle("/metrics", metrics.Handler(rt.Registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
