// package models defines the data model for the playlist plugin
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Playlist is an upstream playlist. ID, Name and Public are decoded for local use; the complete
// upstream object is retained and re-emitted unchanged by [Playlist.MarshalJSON].
type Playlist struct {
	ID     string
	Name   string
	Public bool

	raw json.RawMessage
}

type playlistFields struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Public *bool  `json:"public"`
}

// UnmarshalJSON decodes the known fields and keeps the raw object.
func (p *Playlist) UnmarshalJSON(data []byte) error {
	var f playlistFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	p.ID = f.ID
	p.Name = f.Name
	p.Public = f.Public != nil && *f.Public
	p.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON emits the upstream object verbatim when one was decoded, and the known fields otherwise.
func (p Playlist) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	return json.Marshal(struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Public bool   `json:"public"`
	}{p.ID, p.Name, p.Public})
}

// Raw returns the upstream object, or nil for locally constructed playlists.
func (p Playlist) Raw() json.RawMessage { return p.raw }

// Artist is a track artist as reported by the catalog.
type Artist struct {
	Name         string            `json:"name"`
	ID           string            `json:"id"`
	URI          string            `json:"uri"`
	Href         string            `json:"href"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// Track is a playlist entry projected from the catalog's full track object.
type Track struct {
	Title      string   `json:"title"`
	TrackURI   string   `json:"track_uri"`
	AlbumName  string   `json:"album_name"`
	Artists    []Artist `json:"artists"`
	DurationMS int      `json:"duration_ms"`
	Explicit   bool     `json:"explicit"`
}

// ArtistNames joins the artist names with ", ".
func (t Track) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// PlaylistTracks wraps a track listing for JSON responses.
type PlaylistTracks struct {
	Tracks []Track `json:"tracks"`
}

// TrackTitleBatch is an ordered list of free-text titles to resolve and add.
type TrackTitleBatch struct {
	Titles []string `json:"titles"`
}

// TrackURIBatch is an ordered list of track URIs to remove.
type TrackURIBatch struct {
	TrackURIs []string `json:"track_uris"`
}

// Todo is a single todo entry owned by Username.
type Todo struct {
	ID        string
	Username  string
	Body      string
	CreatedAt time.Time
}

// Validate checks that the todo can be stored.
func (t *Todo) Validate() error {
	if strings.TrimSpace(t.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if t.Body == "" {
		return fmt.Errorf("todo body is required")
	}
	return nil
}
