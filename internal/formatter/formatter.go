// package formatter renders playlist tracks as CSV, Markdown, plain text or JSON for the CLI
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/plugify/internal/models"
	"github.com/desertthunder/plugify/internal/shared"
)

// Format names accepted by [Export].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "md"
	FormatText     = "text"
)

// Formats lists every supported format.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// PlaylistExport is a playlist together with its tracks.
//
// Playlist may be zero when only the tracks are known.
type PlaylistExport struct {
	Playlist models.Playlist
	Tracks   []models.Track
}

func (e *PlaylistExport) title() string {
	switch {
	case e.Playlist.Name != "":
		return e.Playlist.Name
	case e.Playlist.ID != "":
		return e.Playlist.ID
	default:
		return "Playlist"
	}
}

// Export renders export in the named format.
func Export(export *PlaylistExport, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return ExportToJSON(export)
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown, "markdown":
		return ExportToMarkdown(export)
	case FormatText, "txt":
		return ExportToText(export)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (expected one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// ExportToJSON renders the tracks the same way the HTTP API does.
func ExportToJSON(export *PlaylistExport) ([]byte, error) {
	tracks := export.Tracks
	if tracks == nil {
		tracks = []models.Track{}
	}
	return json.MarshalIndent(models.PlaylistTracks{Tracks: tracks}, "", "  ")
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: Title, Artists, Album, Duration, URI, Explicit
func ExportToCSV(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "Artists", "Album", "Duration", "URI", "Explicit"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.Title,
			track.ArtistNames(),
			track.AlbumName,
			shared.FormatDuration(track.DurationMS),
			track.TrackURI,
			strconv.FormatBool(track.Explicit),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown format
func ExportToMarkdown(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.title())
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Tracks))
	if export.Playlist.ID != "" {
		fmt.Fprintf(&buf, "**Visibility**: %s\n", shared.VisibilityString(export.Playlist.Public))
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, track := range export.Tracks {
		albumPart := ""
		if track.AlbumName != "" {
			albumPart = fmt.Sprintf(" (%s)", track.AlbumName)
		}
		explicit := ""
		if track.Explicit {
			explicit = " _explicit_"
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]%s\n", i+1, track.ArtistNames(), track.Title, albumPart, shared.FormatDuration(track.DurationMS), explicit)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.title())
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s (%s)\n", i+1, track.ArtistNames(), track.Title, track.TrackURI)
	}

	return buf.Bytes(), nil
}

// WriteExport renders export and writes it to path.
func WriteExport(export *PlaylistExport, format, path string) error {
	data, err := Export(export, format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s export: %w", format, err)
	}
	return nil
}
