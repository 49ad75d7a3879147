// Package services implements the playlist client that talks to the Spotify Web API.
//
// # Playlist Client
//
// [SpotifyClient] is constructed per inbound request from a bearer credential. Construction calls
// GET /me once and stores the account id; no later operation repeats the lookup. The credential
// is attached by an [oauth2.Transport] wrapping a static token source, so every request carries
// "Authorization: Bearer <token>" plus "Content-Type: application/json".
//
// Operations:
//   - [SpotifyClient.SearchTrack] : GET /search filtered to tracks
//   - [SpotifyClient.ListPlaylists] : follows "next" links, 50 per page, capped at 500 playlists
//   - [SpotifyClient.FindPlaylist] : first exact, case-sensitive name match
//   - [SpotifyClient.CreatePlaylist] : POST /users/{id}/playlists
//   - [SpotifyClient.GetPlaylistTracks] : first page only, projected to [models.Track]
//   - [SpotifyClient.AddTracksToPlaylist] : search each title, add first hits in one request
//   - [SpotifyClient.RemoveTracksFromPlaylist] : DELETE with {"tracks": [{"uri": ...}]}
//
// Every upstream call is attempted exactly once.
//
// # Error Handling
//
//   - [shared.UnauthorizedError] : empty credential, or /me returned non-2xx
//   - [shared.UpstreamError] : any other non-2xx response, with status, body and a message naming the operation
//   - [shared.ErrAPIRequest] : transport failure, no response received
//   - [shared.ErrMalformedResponse] : a 2xx payload missing a required field
//
// # OAuth
//
// [NewOAuthConfig] describes the authorization-code flow used by the CLI to obtain a token for
// local testing; the plugin itself never exchanges codes.
package services
