package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/plugify/internal/repositories"
	"github.com/desertthunder/plugify/internal/services"
	"github.com/desertthunder/plugify/internal/shared"
	tu "github.com/desertthunder/plugify/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const publicURL = "https://plugin.example.com"

func newTestHandler(t *testing.T, factory services.Factory) http.Handler {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: shared.MemoryDatabase})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := shared.NewLogger(io.Discard)
	p, err := New(Options{
		Factory:   factory,
		Todos:     repositories.NewTodoRepository(db),
		Logger:    logger,
		PublicURL: publicURL + "/",
	})
	require.NoError(t, err)

	return NewHandler(shared.DefaultConfig().Server, p, logger)
}

func newCatalogHandler(t *testing.T) (*tu.Catalog, http.Handler) {
	t.Helper()
	catalog := tu.NewCatalog(t)
	factory := services.NewSpotifyFactory(catalog.URL(), catalog.Server.Client(), shared.NewLogger(io.Discard))
	return catalog, newTestHandler(t, factory)
}

func do(h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAuthentication(t *testing.T) {
	catalog, h := newCatalogHandler(t)

	t.Run("missing header never reaches upstream", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/playlists", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, shared.MsgUnauthorized, decode(t, rec)["detail"])
		assert.Zero(t, catalog.Count(http.MethodGet, "/me"))
	})

	t.Run("non-bearer scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/playlists", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Zero(t, catalog.Count(http.MethodGet, "/me"))
	})

	t.Run("identity rejected upstream", func(t *testing.T) {
		catalog.ValidToken = "good"
		defer func() { catalog.ValidToken = "" }()

		rec := do(h, http.MethodGet, "/playlists", "bad", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, shared.MsgUnauthorized, decode(t, rec)["detail"])
		assert.Zero(t, catalog.Count(http.MethodGet, "/users/test-user/playlists"))
	})

	t.Run("todos are public", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/todos/ann", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestPlaylistRoutes(t *testing.T) {
	t.Run("list returns upstream objects", func(t *testing.T) {
		catalog, h := newCatalogHandler(t)
		catalog.Playlists = tu.PlaylistsJSON(3)

		rec := do(h, http.MethodGet, "/playlists", "token", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Playlists []map[string]any `json:"playlists"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Playlists, 3)
		assert.Equal(t, "pl-0", body.Playlists[0]["id"])
		assert.Equal(t, "spotify:playlist:pl-0", body.Playlists[0]["uri"])
		assert.Contains(t, body.Playlists[0], "owner")

		me := catalog.RequestsTo(http.MethodGet, "/me")
		require.Len(t, me, 1)
		assert.Equal(t, "Bearer token", me[0].Auth)
	})

	t.Run("list empty", func(t *testing.T) {
		_, h := newCatalogHandler(t)

		rec := do(h, http.MethodGet, "/playlists", "token", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"playlists":[]}`, rec.Body.String())
	})

	t.Run("find", func(t *testing.T) {
		catalog, h := newCatalogHandler(t)
		catalog.Playlists = tu.PlaylistsJSON(3)

		rec := do(h, http.MethodGet, "/playlists/find?name=Playlist+1", "token", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pl-1", decode(t, rec)["id"])

		rec = do(h, http.MethodGet, "/playlists/find?name=Missing", "token", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"detail":"Playlist not found"}`, rec.Body.String())

		rec = do(h, http.MethodGet, "/playlists/find", "token", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("create", func(t *testing.T) {
		catalog, h := newCatalogHandler(t)

		rec := do(h, http.MethodPost, "/playlists", "token", `{"name":"Road Trip"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":"new-playlist"}`, rec.Body.String())

		created := catalog.RequestsTo(http.MethodPost, "/users/test-user/playlists")
		require.Len(t, created, 1)
		assert.JSONEq(t, `{"name":"Road Trip","public":false}`, string(created[0].Body))
	})

	t.Run("create validates input", func(t *testing.T) {
		catalog, h := newCatalogHandler(t)

		for _, body := range []string{`{"name":""}`, `{"public":true}`, `{"name":`, ``} {
			rec := do(h, http.MethodPost, "/playlists", "token", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			assert.NotEmpty(t, decode(t, rec)["detail"])
		}
		assert.Zero(t, catalog.Count(http.MethodPost, "/users/test-user/playlists"))
	})

	t.Run("tracks", func(t *testing.T) {
		catalog, h := newCatalogHandler(t)
		catalog.PlaylistTracks["pl-1"] = []map[string]any{
			tu.PlaylistItemJSON(tu.TrackJSON("Song A", "spotify:track:a", "Album A", 185000, true)),
		}

		rec := do(h, http.MethodGet, "/playlists/pl-1/tracks", "token", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"tracks":[{
			"title":"Song A",
			"track_uri":"spotify:track:a",
			"album_name":"Album A",
			"duration_ms":185000,
			"explicit":true,
			"artists":[{
				"name":"Test Artist",
				"id":"artist-1",
				"uri":"spotify:artist:artist-1",
				"href":"https://api.spotify.com/v1/artists/artist-1",
				"external_urls":{"spotify":"https://open.spotify.com/artist/artist-1"}
			}]
		}]}`, rec.Body.String())
	})

	t.Run("upstream failure keeps status and body", func(t *testing.T) {
		_, h := newCatalogHandler(t)

		rec := do(h, http.MethodGet, "/playlists/unknown/tracks", "token", "")
		require.Equal(t, http.StatusNotFound, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, "Failed to get tracks from playlist.", body["detail"])
		assert.EqualValues(t, 404, body["upstream_status"])
		assert.Equal(t, map[string]any{"error": map[string]any{"status": float64(404), "message": "Not found."}}, body["upstream_body"])
	})

	t.Run("add tracks", func(t *testing.T) {
		catalog, h := newCatalogHandler(t)
		catalog.Search["Song A"] = []map[string]any{tu.TrackJSON("Song A", "spotify:track:a", "Album", 1000, false)}

		rec := do(h, http.MethodPost, "/playlists/pl-1/tracks", "token", `{"titles":["Song A","Nothing"]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"detail":"OK"}`, rec.Body.String())

		added := catalog.RequestsTo(http.MethodPost, "/playlists/pl-1/tracks")
		require.Len(t, added, 1)
		assert.JSONEq(t, `{"uris":["spotify:track:a"]}`, string(added[0].Body))
	})

	t.Run("add tracks requires titles", func(t *testing.T) {
		catalog, h := newCatalogHandler(t)

		rec := do(h, http.MethodPost, "/playlists/pl-1/tracks", "token", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, catalog.Count(http.MethodPost, "/playlists/pl-1/tracks"))
	})

	t.Run("remove tracks", func(t *testing.T) {
		catalog, h := newCatalogHandler(t)

		rec := do(h, http.MethodDelete, "/playlists/pl-1/tracks", "token", `{"track_uris":["spotify:track:a"]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"detail":"OK"}`, rec.Body.String())

		removed := catalog.RequestsTo(http.MethodDelete, "/playlists/pl-1/tracks")
		require.Len(t, removed, 1)
		assert.JSONEq(t, `{"tracks":[{"uri":"spotify:track:a"}]}`, string(removed[0].Body))
	})

	t.Run("remove failure", func(t *testing.T) {
		catalog, h := newCatalogHandler(t)
		catalog.Fail(http.MethodDelete, "/playlists/pl-1/tracks", http.StatusForbidden)

		rec := do(h, http.MethodDelete, "/playlists/pl-1/tracks", "token", `{"track_uris":["spotify:track:a"]}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Failed to remove tracks from playlist.", decode(t, rec)["detail"])
	})
}

func TestSearchRoute(t *testing.T) {
	catalog, h := newCatalogHandler(t)
	catalog.Search["hello"] = []map[string]any{
		tu.TrackJSON("Hello", "spotify:track:h1", "Album", 1000, false),
		tu.TrackJSON("Hello Again", "spotify:track:h2", "Album", 2000, false),
	}

	t.Run("default limit", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/search?q=hello", "token", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Tracks []map[string]any `json:"tracks"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Tracks, 2)
		assert.Equal(t, "spotify:track:h1", body.Tracks[0]["track_uri"])

		searches := catalog.RequestsTo(http.MethodGet, "/search")
		require.NotEmpty(t, searches)
		assert.Equal(t, "10", searches[len(searches)-1].Query.Get("limit"))
	})

	t.Run("explicit limit", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/search?q=hello&limit=1", "token", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "spotify:track:h1")
		assert.NotContains(t, rec.Body.String(), "spotify:track:h2")
	})

	t.Run("invalid input", func(t *testing.T) {
		for _, target := range []string{"/search", "/search?q=hello&limit=0", "/search?q=hello&limit=51", "/search?q=hello&limit=x"} {
			rec := do(h, http.MethodGet, target, "token", "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		}
	})
}

type failingFactory struct{ err error }

func (f failingFactory) build(context.Context, string) (services.PlaylistService, error) {
	return nil, f.err
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"malformed payload", fmt.Errorf("%w: /me without id", shared.ErrMalformedResponse), http.StatusBadGateway},
		{"transport", fmt.Errorf("%w: connection refused", shared.ErrAPIRequest), http.StatusBadGateway},
		{"unauthorized", shared.NewUnauthorizedError(shared.ErrAuthFailed), http.StatusUnauthorized},
		{"upstream", &shared.UpstreamError{Status: 429, Body: []byte("slow down"), Message: "Failed"}, http.StatusTooManyRequests},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, failingFactory{tt.err}.build)

			rec := do(h, http.MethodGet, "/playlists", "token", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["detail"])
		})
	}

	t.Run("non-JSON upstream body is kept as text", func(t *testing.T) {
		h := newTestHandler(t, failingFactory{&shared.UpstreamError{Status: 503, Body: []byte("<html>down</html>"), Message: "Failed"}}.build)

		rec := do(h, http.MethodGet, "/playlists", "token", "")
		assert.Equal(t, "<html>down</html>", decode(t, rec)["upstream_body"])
	})
}

func TestTodoRoutes(t *testing.T) {
	_, h := newCatalogHandler(t)

	list := func(t *testing.T, username string) []string {
		t.Helper()
		rec := do(h, http.MethodGet, "/todos/"+username, "", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var todos []string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &todos))
		return todos
	}

	t.Run("unknown user has an empty list", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/todos/nobody", "", "")
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("add and list", func(t *testing.T) {
		for _, todo := range []string{"milk", "eggs", "bread"} {
			rec := do(h, http.MethodPost, "/todos/ann", "", fmt.Sprintf(`{"todo":%q}`, todo))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `"OK"`, rec.Body.String())
		}
		assert.Equal(t, []string{"milk", "eggs", "bread"}, list(t, "ann"))
		assert.Empty(t, list(t, "bob"))
	})

	t.Run("delete by index", func(t *testing.T) {
		rec := do(h, http.MethodDelete, "/todos/ann", "", `{"todo_idx":1}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"milk", "bread"}, list(t, "ann"))
	})

	t.Run("out of range delete is ignored", func(t *testing.T) {
		for _, idx := range []int{-1, 2, 100} {
			rec := do(h, http.MethodDelete, "/todos/ann", "", fmt.Sprintf(`{"todo_idx":%d}`, idx))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
		rec := do(h, http.MethodDelete, "/todos/nobody", "", `{"todo_idx":0}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, []string{"milk", "bread"}, list(t, "ann"))
	})

	t.Run("bad bodies", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/todos/ann", "", `{}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/todos/ann", "", `not json`).Code)
		assert.Equal(t, http.StatusBadRequest, do(h, http.MethodDelete, "/todos/ann", "", `{"todo_idx":"x"}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(h, http.MethodDelete, "/todos/ann", "", `{}`).Code)
	})
}

func TestMetadataRoutes(t *testing.T) {
	_, h := newCatalogHandler(t)

	t.Run("root", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Hello World!", rec.Body.String())
	})

	t.Run("unknown path", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/nope", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("manifest", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/.well-known/ai-plugin.json", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		manifest := decode(t, rec)
		assert.Equal(t, "v1", manifest["schema_version"])
		assert.Equal(t, publicURL+"/logo.png", manifest["logo_url"])
		assert.Equal(t, publicURL+"/openapi.yaml", manifest["api"].(map[string]any)["url"])
	})

	t.Run("openapi yaml", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/openapi.yaml", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/yaml"))
		assert.Contains(t, rec.Body.String(), `url: "`+publicURL+`"`)
	})

	t.Run("openapi json", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/openapi.json", "", "")
		require.Equal(t, http.StatusOK, rec.Code)

		doc := decode(t, rec)
		assert.Equal(t, "3.0.1", doc["openapi"])

		servers := doc["servers"].([]any)
		assert.Equal(t, publicURL, servers[0].(map[string]any)["url"])

		paths := doc["paths"].(map[string]any)
		for _, path := range []string{"/playlists", "/playlists/find", "/playlists/{playlist_id}/tracks", "/search", "/todos/{username}"} {
			assert.Contains(t, paths, path)
		}
	})

	t.Run("logo", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/logo.png", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
	})
}

func TestCORSPreflight(t *testing.T) {
	_, h := newCatalogHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/playlists/pl-1/tracks", nil)
	req.Header.Set("Origin", "https://chat.openai.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://chat.openai.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestNew(t *testing.T) {
	db, err := shared.OpenDatabase(shared.DatabaseConfig{})
	require.NoError(t, err)
	defer db.Close()

	todos := repositories.NewTodoRepository(db)
	factory := failingFactory{}.build

	_, err = New(Options{Todos: todos, PublicURL: publicURL})
	assert.ErrorIs(t, err, shared.ErrMissingArgument)

	_, err = New(Options{Factory: factory, PublicURL: publicURL})
	assert.ErrorIs(t, err, shared.ErrMissingArgument)

	for _, bad := range []string{"", "localhost:5003", "/relative"} {
		_, err = New(Options{Factory: factory, Todos: todos, PublicURL: bad})
		assert.ErrorIs(t, err, shared.ErrInvalidConfig, bad)
	}

	p, err := New(Options{Factory: factory, Todos: todos, PublicURL: "http://localhost:5003"})
	require.NoError(t, err)
	assert.Contains(t, string(p.manifest), "http://localhost:5003/openapi.yaml")
}
