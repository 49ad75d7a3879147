// Spotify Web API implementation of [PlaylistService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plugify/internal/models"
	"github.com/desertthunder/plugify/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

const (
	playlistPageSize   = 50
	maxPlaylists       = 500
	DefaultSearchLimit = 10
)

// Caller-facing messages attached to [shared.UpstreamError].
const (
	msgIdentity       = "Failed to resolve current user."
	msgSearch         = "Failed to search track."
	msgListPlaylists  = "Failed to get user playlists."
	msgCreatePlaylist = "Failed to create playlist."
	msgGetTracks      = "Failed to get tracks from playlist."
	msgAddTracks      = "Failed to add tracks to playlist."
	msgRemoveTracks   = "Failed to remove tracks from playlist."
)

// SpotifyUser represents the subset of the current user's profile the client needs.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	URI          string            `json:"uri"`
	Href         string            `json:"href"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	URI         string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is null for entries Spotify can no longer resolve.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

type playlistTrackPage struct {
	Items []SpotifyPlaylistTrack `json:"items"`
	Next  *string                `json:"next"`
}

type playlistPage struct {
	Items []models.Playlist `json:"items"`
	Total int               `json:"total"`
	Next  *string           `json:"next"`
}

type searchResponse struct {
	Tracks *struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type createPlaylistRequest struct {
	Name   string `json:"name"`
	Public bool   `json:"public"`
}

type addTracksRequest struct {
	URIs []string `json:"uris"`
}

type trackRef struct {
	URI string `json:"uri"`
}

type removeTracksRequest struct {
	Tracks []trackRef `json:"tracks"`
}

// ClientOpts configures a [SpotifyClient].
type ClientOpts struct {
	Token      string       // bearer credential, already validated by the caller
	BaseURL    string       // defaults to the public Spotify Web API
	HTTPClient *http.Client // base client wrapped with bearer auth; defaults to [http.DefaultClient]
	Logger     *log.Logger
}

// SpotifyClient performs playlist operations on behalf of a single account.
//
// A client only exists once the account id has been resolved; it holds no other state and is
// meant to live for a single inbound request.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
	accountID  string
	logger     *log.Logger
}

// NewSpotifyClient builds a client for opts.Token and resolves the account id with GET /me.
//
// A missing token or a non-2xx identity response yields a [shared.UnauthorizedError] and no client.
func NewSpotifyClient(ctx context.Context, opts ClientOpts) (*SpotifyClient, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, shared.NewUnauthorizedError(shared.ErrMissingCredentials)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient), src)

	c := &SpotifyClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		logger:     shared.WithLogger(opts.Logger, "component", "spotify"),
	}

	accountID, err := c.resolveIdentity(ctx)
	if err != nil {
		return nil, err
	}
	c.accountID = accountID
	c.logger = shared.WithLogger(c.logger, "account", accountID)

	return c, nil
}

// AccountID returns the account id resolved at construction.
func (c *SpotifyClient) AccountID() string {
	return c.accountID
}

func (c *SpotifyClient) resolveIdentity(ctx context.Context) (string, error) {
	var user SpotifyUser
	if err := c.doRequest(ctx, http.MethodGet, "/me", nil, &user, msgIdentity); err != nil {
		if _, ok := shared.AsUpstreamError(err); ok {
			c.logger.Warn("identity lookup rejected", "error", err)
			return "", shared.NewUnauthorizedError(err)
		}
		return "", err
	}
	if user.ID == "" {
		return "", fmt.Errorf("%w: /me response has no id", shared.ErrMalformedResponse)
	}
	return user.ID, nil
}

// endpointURL resolves endpoint against the base URL. Absolute URLs, such as pagination links, are used as-is.
func (c *SpotifyClient) endpointURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + endpoint
}

// pageLink accepts a pagination link only when it points at the API host. Relative links are
// resolved against the base URL by [SpotifyClient.endpointURL].
func (c *SpotifyClient) pageLink(link string) (string, error) {
	next, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: invalid next page link %q: %v", shared.ErrMalformedResponse, link, err)
	}
	if next.Scheme == "" && next.Host == "" {
		return link, nil
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base URL %q: %v", shared.ErrInvalidConfig, c.baseURL, err)
	}
	if !strings.EqualFold(next.Scheme, base.Scheme) || !strings.EqualFold(next.Host, base.Host) {
		return "", fmt.Errorf("%w: next page link %q is outside %s", shared.ErrMalformedResponse, link, base.Host)
	}
	return link, nil
}

// doRequest performs one authenticated request. Non-2xx responses become a [shared.UpstreamError]
// carrying failure as its message; a 2xx body that cannot be decoded into result wraps
// [shared.ErrMalformedResponse].
func (c *SpotifyClient) doRequest(ctx context.Context, method, endpoint string, body, result any, failure string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	apiURL := c.endpointURL(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("upstream request", "method", method, "url", apiURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	c.logger.Debug("upstream response", "method", method, "url", apiURL, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &shared.UpstreamError{Status: resp.StatusCode, Body: data, Message: failure}
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("%w: %s %v", shared.ErrMalformedResponse, failure, err)
		}
	}

	return nil
}

// SearchTrack searches the catalog for tracks matching query, returning at most limit items in
// relevance order. A limit of zero or less uses [DefaultSearchLimit].
func (c *SpotifyClient) SearchTrack(ctx context.Context, query string, limit int) ([]SpotifyTrack, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))

	var response searchResponse
	if err := c.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response, msgSearch); err != nil {
		return nil, err
	}
	if response.Tracks == nil {
		return nil, fmt.Errorf("%w: search response has no tracks", shared.ErrMalformedResponse)
	}

	return response.Tracks.Items, nil
}

// ListPlaylists follows the account's playlist pages, 50 at a time, until there is no next page,
// a page comes back empty, or 500 playlists have been collected. A failed page discards everything
// fetched so far.
func (c *SpotifyClient) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	playlists := []models.Playlist{}
	next := fmt.Sprintf("/users/%s/playlists?limit=%d&offset=%d", url.PathEscape(c.accountID), playlistPageSize, 0)

	for len(playlists) < maxPlaylists && next != "" {
		var page playlistPage
		if err := c.doRequest(ctx, http.MethodGet, next, nil, &page, msgListPlaylists); err != nil {
			return nil, err
		}

		if len(page.Items) == 0 {
			break
		}
		playlists = append(playlists, page.Items...)

		next = ""
		if page.Next != nil {
			link, err := c.pageLink(*page.Next)
			if err != nil {
				return nil, err
			}
			next = link
		}
	}

	c.logger.Debug("listed playlists", "count", len(playlists))
	return playlists, nil
}

// FindPlaylist returns the first playlist, in listing order, whose name equals name exactly.
// It returns nil without an error when there is no such playlist.
func (c *SpotifyClient) FindPlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	playlists, err := c.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	for i := range playlists {
		if playlists[i].Name == name {
			return &playlists[i], nil
		}
	}
	return nil, nil
}

// CreatePlaylist creates a playlist owned by the account and returns its id.
func (c *SpotifyClient) CreatePlaylist(ctx context.Context, name string, public bool) (string, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(c.accountID))

	var created struct {
		ID string `json:"id"`
	}
	body := createPlaylistRequest{Name: name, Public: public}
	if err := c.doRequest(ctx, http.MethodPost, endpoint, body, &created, msgCreatePlaylist); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: created playlist has no id", shared.ErrMalformedResponse)
	}

	c.logger.Info("created playlist", "id", created.ID, "name", name, "public", public)
	return created.ID, nil
}

// GetPlaylistTracks returns the first page of a playlist's tracks, projected to [models.Track].
func (c *SpotifyClient) GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	var page playlistTrackPage
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &page, msgGetTracks); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(page.Items))
	for i, item := range page.Items {
		if item.Track == nil {
			return nil, fmt.Errorf("%w: playlist item %d has no track", shared.ErrMalformedResponse, i)
		}
		tracks = append(tracks, item.Track.Project())
	}

	return tracks, nil
}

// AddTracksToPlaylist resolves each title to the URI of its first search hit and adds all
// resolved URIs, in title order, with a single request. Titles without a hit are skipped.
//
// The add request is sent even when no title resolved.
func (c *SpotifyClient) AddTracksToPlaylist(ctx context.Context, playlistID string, titles []string) error {
	uris := make([]string, 0, len(titles))
	for _, title := range titles {
		tracks, err := c.SearchTrack(ctx, title, DefaultSearchLimit)
		if err != nil {
			return err
		}
		if len(tracks) == 0 {
			c.logger.Warn("no tracks found", "title", title)
			continue
		}
		uris = append(uris, tracks[0].URI)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := c.doRequest(ctx, http.MethodPost, endpoint, addTracksRequest{URIs: uris}, nil, msgAddTracks); err != nil {
		return err
	}

	c.logger.Info("added tracks", "playlist", playlistID, "resolved", len(uris), "requested", len(titles))
	return nil
}

// RemoveTracksFromPlaylist removes every occurrence of the given track URIs with a single request.
func (c *SpotifyClient) RemoveTracksFromPlaylist(ctx context.Context, playlistID string, uris []string) error {
	refs := make([]trackRef, 0, len(uris))
	for _, uri := range uris {
		refs = append(refs, trackRef{URI: uri})
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := c.doRequest(ctx, http.MethodDelete, endpoint, removeTracksRequest{Tracks: refs}, nil, msgRemoveTracks); err != nil {
		return err
	}

	c.logger.Info("removed tracks", "playlist", playlistID, "count", len(uris))
	return nil
}

// Project converts a catalog track into the plugin's [models.Track] shape.
func (t SpotifyTrack) Project() models.Track {
	artists := make([]models.Artist, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, models.Artist{
			Name:         a.Name,
			ID:           a.ID,
			URI:          a.URI,
			Href:         a.Href,
			ExternalURLs: a.ExternalURLs,
		})
	}

	return models.Track{
		Title:      t.Name,
		TrackURI:   t.URI,
		AlbumName:  t.Album.Name,
		Artists:    artists,
		DurationMS: t.DurationMS,
		Explicit:   t.Explicit,
	}
}

// NewOAuthConfig returns the authorization-code configuration used by the CLI login flow.
func NewOAuthConfig(cfg shared.SpotifyConfig) (*oauth2.Config, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8888/callback"
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}, nil
}
