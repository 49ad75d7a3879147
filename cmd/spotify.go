package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/plugify/internal/formatter"
	"github.com/desertthunder/plugify/internal/models"
	"github.com/desertthunder/plugify/internal/server"
	"github.com/desertthunder/plugify/internal/services"
	"github.com/desertthunder/plugify/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const defaultLoginTimeout = 2 * time.Minute

// SpotifyLogin performs the OAuth2 authorization code flow and prints the access token.
//
// Starts a local callback server on the redirect URI's address, opens the browser for consent,
// and exchanges the returned code for tokens.
func (r *Runner) SpotifyLogin(ctx context.Context, cmd *cli.Command) error {
	oauthConfig, err := services.NewOAuthConfig(r.config.Spotify)
	if err != nil {
		return fmt.Errorf("%w: set spotify.client_id and spotify.client_secret in %s", err, r.configPath)
	}

	token, err := r.doOAuth(ctx, oauthConfig, !cmd.Bool("no-browser"), cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	r.writePlain("✓ Authorization successful\n\n")
	r.writePlain("Access token (expires %s):\n%s\n\n", token.Expiry.Format(time.RFC3339), token.AccessToken)
	return r.writePlain("Use it with: export SPOTIFY_TOKEN=<token>\n")
}

func (r *Runner) doOAuth(ctx context.Context, oauthConfig *oauth2.Config, openBrowser bool, timeout time.Duration) (*oauth2.Token, error) {
	redirect, err := url.Parse(oauthConfig.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: invalid redirect_uri %q", shared.ErrInvalidConfig, oauthConfig.RedirectURL)
	}

	oauthHandler := server.NewOAuthHandler(oauthConfig, shared.GenerateID())
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server on %s: %w", redirect.Host, err)
	}

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			oauthHandler.Send(server.OAuthResult{Token: nil})
			r.logger.Error("callback server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := oauthHandler.AuthCodeURL()
	if openBrowser {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(ctx, authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			openBrowser = false
		}
	}
	if !openBrowser {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token, err := oauthHandler.Wait(waitCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return token, nil
}

// SpotifyMe prints the account id resolved for the token.
func (r *Runner) SpotifyMe(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", svc.AccountID())
}

// SpotifyPlaylists lists the account's playlists.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	playlists, err := svc.ListPlaylists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s | Visibility: %s\n", p.ID, shared.VisibilityString(p.Public))
	}
	return nil
}

// SpotifyFind prints the first playlist with the exact name.
func (r *Runner) SpotifyFind(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	playlist, err := svc.FindPlaylist(ctx, name)
	if err != nil {
		return err
	}
	if playlist == nil {
		return fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, name)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, cmd.Bool("pretty"))
	}
	return r.writePlain("%s\t%s\t%s\n", playlist.ID, playlist.Name, shared.VisibilityString(playlist.Public))
}

// SpotifyCreate creates a playlist and prints its id.
func (r *Runner) SpotifyCreate(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	id, err := svc.CreatePlaylist(ctx, name, cmd.Bool("public"))
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", id)
}

// SpotifyTracks renders a playlist's tracks in the requested format.
func (r *Runner) SpotifyTracks(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	tracks, err := svc.GetPlaylistTracks(ctx, id)
	if err != nil {
		return err
	}

	export := &formatter.PlaylistExport{Playlist: models.Playlist{ID: id}, Tracks: tracks}
	format := cmd.String("format")

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(export, format, path); err != nil {
			return err
		}
		r.logger.Info("tracks exported", "file", path, "count", len(tracks))
		return nil
	}

	data, err := formatter.Export(export, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", data)
}

// SpotifySearch prints catalog tracks matching the query.
func (r *Runner) SpotifySearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	limit := cmd.Int("limit")
	if limit < 1 || limit > 50 {
		return fmt.Errorf("%w: --limit must be between 1 and 50", shared.ErrInvalidArgument)
	}

	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	found, err := svc.SearchTrack(ctx, query, limit)
	if err != nil {
		return err
	}

	tracks := make([]models.Track, 0, len(found))
	for _, t := range found {
		tracks = append(tracks, t.Project())
	}

	if cmd.Bool("json") {
		return r.writeJSON(models.PlaylistTracks{Tracks: tracks}, cmd.Bool("pretty"))
	}

	for i, t := range tracks {
		r.writePlain("%d. %s - %s [%s]\n   %s\n", i+1, t.ArtistNames(), t.Title, shared.FormatDuration(t.DurationMS), t.TrackURI)
	}
	return nil
}

// SpotifyAdd resolves titles and adds the matches to a playlist.
func (r *Runner) SpotifyAdd(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return fmt.Errorf("%w: playlist id and at least one title", shared.ErrMissingArgument)
	}
	id, titles := cmd.Args().First(), cmd.Args().Tail()

	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	if err := svc.AddTracksToPlaylist(ctx, id, titles); err != nil {
		return err
	}
	return r.writePlain("✓ Processed %d titles for playlist %s\n", len(titles), id)
}

// SpotifyRemove removes track URIs from a playlist.
func (r *Runner) SpotifyRemove(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return fmt.Errorf("%w: playlist id and at least one track uri", shared.ErrMissingArgument)
	}
	id, uris := cmd.Args().First(), cmd.Args().Tail()

	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	if err := svc.RemoveTracksFromPlaylist(ctx, id, uris); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %d tracks from playlist %s\n", len(uris), id)
}
