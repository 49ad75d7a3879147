package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/plugify/internal/plugin"
	"github.com/desertthunder/plugify/internal/repositories"
	"github.com/desertthunder/plugify/internal/shared"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the plugin server until ctx is cancelled, then drains in-flight requests.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := *r.config
	if cmd.IsSet("port") {
		config.Server.Port = cmd.Int("port")
	}
	if cmd.IsSet("host") {
		config.Server.Host = cmd.String("host")
	}

	if err := config.Validate(); err != nil {
		return err
	}

	handler, db, err := r.buildHandler(&config)
	if err != nil {
		return err
	}
	defer db.Close()

	ln, err := net.Listen("tcp", config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", config.Server.Addr(), err)
	}

	return r.serve(ctx, &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}, ln)
}

// buildHandler opens the todo database and assembles the plugin routes.
func (r *Runner) buildHandler(config *shared.Config) (http.Handler, *sql.DB, error) {
	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return nil, nil, err
	}

	p, err := plugin.New(plugin.Options{
		Factory:   r.spotifyFactory(),
		Todos:     repositories.NewTodoRepository(db),
		Logger:    r.logger,
		PublicURL: config.Server.PublicURL,
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return plugin.NewHandler(config.Server, p, r.logger), db, nil
}

func (r *Runner) serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("plugin server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down plugin server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
