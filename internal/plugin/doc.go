// Package plugin is the HTTP surface of the playlist assistant.
//
// Playlist routes require a bearer credential (see [server.RequireBearer]) and build a fresh
// [services.PlaylistService] per request through a [services.Factory], so no account state is shared
// between callers. Todo routes are unauthenticated and backed by a [repositories.TodoStore].
//
// Routes
//
//	GET    /playlists                 → {"playlists": [...]}
//	POST   /playlists                 → {"id": ...}
//	GET    /playlists/find?name=      → playlist, or 404
//	GET    /playlists/{id}/tracks     → {"tracks": [...]}
//	POST   /playlists/{id}/tracks     → {"detail": "OK"}
//	DELETE /playlists/{id}/tracks     → {"detail": "OK"}
//	GET    /search?q=&limit=          → {"tracks": [...]}
//	GET    /todos/{username}          → ["...", ...]
//	POST   /todos/{username}          → "OK"
//	DELETE /todos/{username}          → "OK"
//	GET    /.well-known/ai-plugin.json
//	GET    /openapi.yaml, /openapi.json
//	GET    /logo.png
//	GET    /                          → Hello World!
//
// # Errors
//
// Every failure is written as {"detail": message}. Upstream failures keep the catalog's status
// code and add "upstream_status" and "upstream_body"; authentication failures are always 401;
// transport failures and unusable upstream payloads are 502.
package plugin
