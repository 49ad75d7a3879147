package plugin

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/plugify/internal/models"
	"github.com/desertthunder/plugify/internal/server"
	"github.com/desertthunder/plugify/internal/services"
	"github.com/desertthunder/plugify/internal/shared"
)

const (
	maxBodyBytes   = 1 << 20
	maxSearchLimit = 50
)

type serviceHandler func(w http.ResponseWriter, r *http.Request, svc services.PlaylistService)

// withService guards h with the bearer check and hands it a service for the caller's account.
func (p *Plugin) withService(h serviceHandler) http.Handler {
	return server.RequireBearer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := server.TokenFromContext(r.Context())
		if !ok {
			p.writeError(w, r, shared.NewUnauthorizedError(shared.ErrMissingCredentials))
			return
		}

		svc, err := p.factory(r.Context(), token)
		if err != nil {
			p.writeError(w, r, err)
			return
		}
		h(w, r, svc)
	}))
}

func (p *Plugin) listPlaylists(w http.ResponseWriter, r *http.Request, svc services.PlaylistService) {
	playlists, err := svc.ListPlaylists(r.Context())
	if err != nil {
		p.writeError(w, r, err)
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

func (p *Plugin) findPlaylist(w http.ResponseWriter, r *http.Request, svc services.PlaylistService) {
	name := r.URL.Query().Get("name")
	if name == "" {
		p.writeError(w, r, fmt.Errorf("%w: name is required", shared.ErrInvalidInput))
		return
	}

	playlist, err := svc.FindPlaylist(r.Context(), name)
	if err != nil {
		p.writeError(w, r, err)
		return
	}
	if playlist == nil {
		p.writeError(w, r, shared.ErrPlaylistNotFound)
		return
	}
	server.WriteJSON(w, http.StatusOK, playlist)
}

func (p *Plugin) createPlaylist(w http.ResponseWriter, r *http.Request, svc services.PlaylistService) {
	var body struct {
		Name   string `json:"name"`
		Public bool   `json:"public"`
	}
	if err := decodeBody(r, &body); err != nil {
		p.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		p.writeError(w, r, fmt.Errorf("%w: name is required", shared.ErrInvalidInput))
		return
	}

	id, err := svc.CreatePlaylist(r.Context(), body.Name, body.Public)
	if err != nil {
		p.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (p *Plugin) playlistTracks(w http.ResponseWriter, r *http.Request, svc services.PlaylistService) {
	tracks, err := svc.GetPlaylistTracks(r.Context(), r.PathValue("id"))
	if err != nil {
		p.writeError(w, r, err)
		return
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	server.WriteJSON(w, http.StatusOK, models.PlaylistTracks{Tracks: tracks})
}

func (p *Plugin) addTracks(w http.ResponseWriter, r *http.Request, svc services.PlaylistService) {
	var batch models.TrackTitleBatch
	if err := decodeBody(r, &batch); err != nil {
		p.writeError(w, r, err)
		return
	}
	if batch.Titles == nil {
		p.writeError(w, r, fmt.Errorf("%w: titles is required", shared.ErrInvalidInput))
		return
	}

	if err := svc.AddTracksToPlaylist(r.Context(), r.PathValue("id"), batch.Titles); err != nil {
		p.writeError(w, r, err)
		return
	}
	server.WriteDetail(w, http.StatusOK, "OK")
}

func (p *Plugin) removeTracks(w http.ResponseWriter, r *http.Request, svc services.PlaylistService) {
	var batch models.TrackURIBatch
	if err := decodeBody(r, &batch); err != nil {
		p.writeError(w, r, err)
		return
	}
	if batch.TrackURIs == nil {
		p.writeError(w, r, fmt.Errorf("%w: track_uris is required", shared.ErrInvalidInput))
		return
	}

	if err := svc.RemoveTracksFromPlaylist(r.Context(), r.PathValue("id"), batch.TrackURIs); err != nil {
		p.writeError(w, r, err)
		return
	}
	server.WriteDetail(w, http.StatusOK, "OK")
}

func (p *Plugin) search(w http.ResponseWriter, r *http.Request, svc services.PlaylistService) {
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		p.writeError(w, r, fmt.Errorf("%w: q is required", shared.ErrInvalidInput))
		return
	}

	limit := services.DefaultSearchLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchLimit {
			p.writeError(w, r, fmt.Errorf("%w: limit must be between 1 and %d", shared.ErrInvalidInput, maxSearchLimit))
			return
		}
		limit = n
	}

	found, err := svc.SearchTrack(r.Context(), query, limit)
	if err != nil {
		p.writeError(w, r, err)
		return
	}

	tracks := make([]models.Track, 0, len(found))
	for _, t := range found {
		tracks = append(tracks, t.Project())
	}
	server.WriteJSON(w, http.StatusOK, models.PlaylistTracks{Tracks: tracks})
}

// decodeBody decodes a JSON request body into v, reporting bad input as [shared.ErrInvalidInput].
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: request body is required", shared.ErrInvalidInput)
		}
		return fmt.Errorf("%w: malformed JSON body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}
