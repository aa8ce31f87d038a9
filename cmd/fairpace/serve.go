package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MJE43/fairpace/internal/api"
	"github.com/MJE43/fairpace/internal/journal"
	"github.com/MJE43/fairpace/internal/session"
	"github.com/MJE43/fairpace/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		addr        string
		journalPath string
		token       string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if journalPath != "" {
				cfg.Journal.Path = journalPath
			}

			opts := api.Options{RequestTimeout: cfg.Server.RequestTimeout}
			var rec session.Recorder
			if cfg.Journal.Path != "" {
				db, err := store.NewSQLiteDB(cfg.Journal.Path)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.Migrate(); err != nil {
					return err
				}
				jr := journal.New(db, cfg.Journal.FlushSize)
				defer jr.Close()
				rec = jr
				opts.Journal = db
				log.Printf("[JOURNAL] writing to %s", cfg.Journal.Path)
			}

			opts.Token, err = tokenStore(cfg).Resolve(token)
			if err != nil {
				log.Printf("[AUTH] token lookup failed, serving without auth: %v", err)
			}

			srv := api.NewServer(session.NewManager(cfg, rec), opts)
			return serve(cmd.Context(), cfg.Server.Addr, srv)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&journalPath, "journal", "", "sqlite journal path (overrides journal.path)")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (defaults to the keyring token)")
	return cmd
}

func serve(ctx context.Context, addr string, srv *api.Server) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	errc := make(chan error, 1)
	go func() {
		srv.Security().LogSystemStartup(addr, srv.TokenRequired())
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Security().LogSystemShutdown("signal", time.Since(started))
	return httpSrv.Shutdown(shutdownCtx)
}
