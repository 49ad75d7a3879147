// package services defines interface PlaylistService for the music catalog HTTP API
//
// Spotify
package services

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plugify/internal/models"
)

// PlaylistService is the set of playlist operations the plugin exposes for a single account.
type PlaylistService interface {
	// AccountID returns the account the service acts for.
	AccountID() string

	// SearchTrack returns up to limit catalog tracks matching query.
	SearchTrack(ctx context.Context, query string, limit int) ([]SpotifyTrack, error)

	// ListPlaylists returns the account's playlists (at most 500) in upstream order.
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)

	// FindPlaylist returns the first playlist named name, or nil.
	FindPlaylist(ctx context.Context, name string) (*models.Playlist, error)

	// CreatePlaylist creates a playlist and returns its id.
	CreatePlaylist(ctx context.Context, name string, public bool) (string, error)

	// GetPlaylistTracks returns the first page of a playlist's tracks.
	GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// AddTracksToPlaylist resolves titles via search and adds the hits.
	AddTracksToPlaylist(ctx context.Context, playlistID string, titles []string) error

	// RemoveTracksFromPlaylist removes the given track URIs.
	RemoveTracksFromPlaylist(ctx context.Context, playlistID string, uris []string) error
}

// Factory builds a [PlaylistService] for a validated bearer credential.
type Factory func(ctx context.Context, token string) (PlaylistService, error)

// NewSpotifyFactory returns a [Factory] producing [SpotifyClient] values that share baseURL,
// the base HTTP client and the logger, and nothing else.
func NewSpotifyFactory(baseURL string, client *http.Client, logger *log.Logger) Factory {
	return func(ctx context.Context, token string) (PlaylistService, error) {
		c, err := NewSpotifyClient(ctx, ClientOpts{
			Token:      token,
			BaseURL:    baseURL,
			HTTPClient: client,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

var _ PlaylistService = (*SpotifyClient)(nil)
