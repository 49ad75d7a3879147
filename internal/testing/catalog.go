package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// RecordedRequest is a request received by a [Catalog].
type RecordedRequest struct {
	Method      string
	Path        string // without the /v1 prefix
	Query       url.Values
	Auth        string
	ContentType string
	Body        []byte
}

// JSON decodes the recorded body into v.
func (r RecordedRequest) JSON(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("failed to decode recorded body %q: %v", string(r.Body), err)
	}
}

// Catalog is an in-process fake of the Spotify Web API endpoints used by the playlist client.
//
// Fields may be changed between requests; handlers read them under the catalog's lock.
type Catalog struct {
	Server *httptest.Server

	UserID     string
	ValidToken string // when set, /me rejects any other bearer token with 401

	Playlists      []map[string]any            // served by GET /users/{id}/playlists
	Search         map[string][]map[string]any // query -> track items
	PlaylistTracks map[string][]map[string]any // playlist id -> playlist track items
	Failures       map[string]int              // "METHOD /path" -> forced status
	CreatedID      string                      // id returned by playlist creation
	NextLink       string                      // when set, replaces the next link of every playlist page

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewCatalog starts a fake catalog that is closed when the test ends.
func NewCatalog(t *testing.T) *Catalog {
	t.Helper()

	c := &Catalog{
		UserID:         "test-user",
		Search:         map[string][]map[string]any{},
		PlaylistTracks: map[string][]map[string]any{},
		Failures:       map[string]int{},
		CreatedID:      "new-playlist",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/me", c.me)
	mux.HandleFunc("GET /v1/search", c.search)
	mux.HandleFunc("GET /v1/users/{user}/playlists", c.listPlaylists)
	mux.HandleFunc("POST /v1/users/{user}/playlists", c.createPlaylist)
	mux.HandleFunc("GET /v1/playlists/{id}/tracks", c.playlistTracks)
	mux.HandleFunc("POST /v1/playlists/{id}/tracks", c.snapshot(http.StatusCreated))
	mux.HandleFunc("DELETE /v1/playlists/{id}/tracks", c.snapshot(http.StatusOK))

	c.Server = httptest.NewServer(c.record(mux))
	t.Cleanup(c.Server.Close)
	return c
}

// URL returns the API base URL, including the /v1 prefix.
func (c *Catalog) URL() string {
	return c.Server.URL + "/v1"
}

// Fail forces every request matching method and path (without /v1) to return status.
func (c *Catalog) Fail(method, path string, status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Failures[method+" "+path] = status
}

// Requests returns a copy of every recorded request.
func (c *Catalog) Requests() []RecordedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RecordedRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// RequestsTo returns the recorded requests matching method and path.
func (c *Catalog) RequestsTo(method, path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range c.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Count returns how many requests matched method and path.
func (c *Catalog) Count(method, path string) int {
	return len(c.RequestsTo(method, path))
}

func (c *Catalog) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		path := strings.TrimPrefix(r.URL.Path, "/v1")

		c.mu.Lock()
		c.requests = append(c.requests, RecordedRequest{
			Method:      r.Method,
			Path:        path,
			Query:       r.URL.Query(),
			Auth:        r.Header.Get("Authorization"),
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		})
		status, fail := c.Failures[r.Method+" "+path]
		c.mu.Unlock()

		if fail {
			writeCatalogJSON(w, status, map[string]any{
				"error": map[string]any{"status": status, "message": "forced failure"},
			})
			return
		}

		r.Body = io.NopCloser(strings.NewReader(string(body)))
		next.ServeHTTP(w, r)
	})
}

func (c *Catalog) me(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	valid, user := c.ValidToken, c.UserID
	c.mu.Unlock()

	if valid != "" && r.Header.Get("Authorization") != "Bearer "+valid {
		writeCatalogJSON(w, http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"status": 401, "message": "Invalid access token"},
		})
		return
	}
	writeCatalogJSON(w, http.StatusOK, map[string]any{"id": user, "display_name": "Test User"})
}

func (c *Catalog) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	c.mu.Lock()
	items := append([]map[string]any{}, c.Search[q]...)
	c.mu.Unlock()

	if len(items) > limit {
		items = items[:limit]
	}
	writeCatalogJSON(w, http.StatusOK, map[string]any{
		"tracks": map[string]any{"items": items, "limit": limit, "total": len(items)},
	})
}

func (c *Catalog) listPlaylists(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	c.mu.Lock()
	all, override := c.Playlists, c.NextLink
	c.mu.Unlock()

	end := min(offset+limit, len(all))
	items := []map[string]any{}
	if offset < len(all) {
		items = all[offset:end]
	}

	var next any
	if end < len(all) {
		next = fmt.Sprintf("%s/v1/users/%s/playlists?limit=%d&offset=%d", c.Server.URL, r.PathValue("user"), limit, end)
	}
	if override != "" {
		next = override
	}

	writeCatalogJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  len(all),
		"next":   next,
	})
}

func (c *Catalog) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name   string `json:"name"`
		Public bool   `json:"public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeCatalogJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	c.mu.Lock()
	created := PlaylistJSON(c.CreatedID, body.Name, body.Public)
	c.Playlists = append(c.Playlists, created)
	c.mu.Unlock()

	writeCatalogJSON(w, http.StatusCreated, created)
}

func (c *Catalog) playlistTracks(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	items, ok := c.PlaylistTracks[r.PathValue("id")]
	c.mu.Unlock()

	if !ok {
		writeCatalogJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{"status": 404, "message": "Not found."},
		})
		return
	}
	writeCatalogJSON(w, http.StatusOK, map[string]any{"items": items, "next": nil, "total": len(items)})
}

func (c *Catalog) snapshot(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeCatalogJSON(w, status, map[string]any{"snapshot_id": "snapshot-" + r.PathValue("id")})
	}
}

func writeCatalogJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// PlaylistJSON builds an upstream playlist object, including fields the plugin passes through untouched.
func PlaylistJSON(id, name string, public bool) map[string]any {
	return map[string]any{
		"id":            id,
		"name":          name,
		"public":        public,
		"collaborative": false,
		"description":   "",
		"uri":           "spotify:playlist:" + id,
		"owner":         map[string]any{"id": "test-user", "display_name": "Test User"},
		"tracks":        map[string]any{"total": 0},
	}
}

// PlaylistsJSON builds n playlists named "Playlist 0" .. "Playlist n-1".
func PlaylistsJSON(n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := range n {
		out = append(out, PlaylistJSON(fmt.Sprintf("pl-%d", i), fmt.Sprintf("Playlist %d", i), i%2 == 0))
	}
	return out
}

// TrackJSON builds an upstream full track object with a single artist.
func TrackJSON(name, uri, album string, durationMS int, explicit bool) map[string]any {
	return map[string]any{
		"id":          strings.TrimPrefix(uri, "spotify:track:"),
		"name":        name,
		"uri":         uri,
		"duration_ms": durationMS,
		"explicit":    explicit,
		"popularity":  50,
		"album":       map[string]any{"id": "album-1", "name": album, "uri": "spotify:album:album-1"},
		"artists": []map[string]any{{
			"id":            "artist-1",
			"name":          "Test Artist",
			"uri":           "spotify:artist:artist-1",
			"href":          "https://api.spotify.com/v1/artists/artist-1",
			"external_urls": map[string]string{"spotify": "https://open.spotify.com/artist/artist-1"},
		}},
	}
}

// PlaylistItemJSON wraps track in a playlist item.
func PlaylistItemJSON(track map[string]any) map[string]any {
	return map[string]any{"added_at": "2024-01-01T00:00:00Z", "track": track}
}
