// Package server provides HTTP routing, middleware, the bearer authentication gate and the OAuth
// callback used by the CLI login flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so one path can be served
// by different handlers per method and wildcards are read with [http.Request.PathValue].
//
// # Middleware
//
//   - [RequestLogger] logs one line per request with a request id
//   - [CORS] answers preflight requests for the configured origins
//   - [RateLimit] applies a token bucket shared by all callers
//   - [Recovery] converts panics into 500 responses
//
// # Authentication
//
// [Authenticate] checks that an Authorization header uses the bearer scheme with a non-empty
// credential. Nothing else is verified locally; the catalog API decides whether the token is valid.
// [RequireBearer] applies the check to a handler and stores the credential in the request context.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback. It validates the state parameter,
// exchanges the code for a token and publishes the result through a channel. Only the first
// callback is processed.
package server
