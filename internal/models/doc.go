// Package models defines the request-scoped values exchanged between the playlist client and the
// plugin web layer.
//
//   - [Playlist] : a reference to an upstream playlist; unknown upstream fields survive a
//     decode/encode round trip verbatim
//   - [Track] : a playlist entry projected down to title, URI, album, artists, duration and explicit flag
//   - [Artist] : artist reference embedded in a [Track]
//   - [TrackTitleBatch], [TrackURIBatch] : request bodies for add and remove operations
//   - [Todo] : a single entry of a user's todo list
//
// None of these values are cached between requests.
package models
