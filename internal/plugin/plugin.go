package plugin

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"text/template"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plugify/internal/repositories"
	"github.com/desertthunder/plugify/internal/server"
	"github.com/desertthunder/plugify/internal/services"
	"github.com/desertthunder/plugify/internal/shared"
	"gopkg.in/yaml.v3"
)

//go:embed static
var static embed.FS

// Options configures a [Plugin].
type Options struct {
	Factory   services.Factory
	Todos     repositories.TodoStore
	Logger    *log.Logger
	PublicURL string // base URL written into the manifest and OpenAPI document
}

// Plugin serves the playlist, todo and metadata routes.
type Plugin struct {
	factory services.Factory
	todos   repositories.TodoStore
	logger  *log.Logger

	manifest    []byte
	openapiYAML []byte
	openapiJSON []byte
	logo        []byte
}

// New renders the embedded documents for opts.PublicURL and returns a ready [Plugin].
func New(opts Options) (*Plugin, error) {
	if opts.Factory == nil {
		return nil, fmt.Errorf("%w: playlist service factory", shared.ErrMissingArgument)
	}
	if opts.Todos == nil {
		return nil, fmt.Errorf("%w: todo store", shared.ErrMissingArgument)
	}

	publicURL := strings.TrimRight(opts.PublicURL, "/")
	if u, err := url.Parse(publicURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: public_url %q must be an absolute URL", shared.ErrInvalidConfig, opts.PublicURL)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	p := &Plugin{factory: opts.Factory, todos: opts.Todos, logger: logger}

	vars := struct{ PublicURL string }{publicURL}

	var err error
	if p.manifest, err = render("static/ai-plugin.json", vars); err != nil {
		return nil, err
	}
	if !json.Valid(p.manifest) {
		return nil, fmt.Errorf("%w: rendered manifest is not valid JSON", shared.ErrInvalidConfig)
	}

	if p.openapiYAML, err = render("static/openapi.yaml", vars); err != nil {
		return nil, err
	}
	if p.openapiJSON, err = yamlToJSON(p.openapiYAML); err != nil {
		return nil, err
	}

	if p.logo, err = static.ReadFile("static/logo.png"); err != nil {
		return nil, fmt.Errorf("failed to read logo: %w", err)
	}

	return p, nil
}

// Register adds every plugin route to r.
func (p *Plugin) Register(r *server.BasicRouter) {
	r.Handle(http.MethodGet, "/playlists", p.withService(p.listPlaylists))
	r.Handle(http.MethodPost, "/playlists", p.withService(p.createPlaylist))
	r.Handle(http.MethodGet, "/playlists/find", p.withService(p.findPlaylist))
	r.Handle(http.MethodGet, "/playlists/{id}/tracks", p.withService(p.playlistTracks))
	r.Handle(http.MethodPost, "/playlists/{id}/tracks", p.withService(p.addTracks))
	r.Handle(http.MethodDelete, "/playlists/{id}/tracks", p.withService(p.removeTracks))
	r.Handle(http.MethodGet, "/search", p.withService(p.search))

	r.HandleFunc(http.MethodGet, "/todos/{username}", p.listTodos)
	r.HandleFunc(http.MethodPost, "/todos/{username}", p.addTodo)
	r.HandleFunc(http.MethodDelete, "/todos/{username}", p.deleteTodo)

	r.HandleFunc(http.MethodGet, "/.well-known/ai-plugin.json", p.serveManifest)
	r.HandleFunc(http.MethodGet, "/openapi.yaml", p.serveOpenAPIYAML)
	r.HandleFunc(http.MethodGet, "/openapi.json", p.serveOpenAPIJSON)
	r.HandleFunc(http.MethodGet, "/logo.png", p.serveLogo)
	r.HandleFunc(http.MethodGet, "/{$}", root)
}

// NewHandler builds the complete HTTP handler: routes and rate limiting inside the
// [server.Standard] stack.
//
// CORS wraps the mux so preflight requests are answered for paths that have no OPTIONS route.
func NewHandler(cfg shared.ServerConfig, p *Plugin, logger *log.Logger) http.Handler {
	r := server.NewBasicRouter()
	r.Use(server.RateLimit(cfg.RateLimit, cfg.RateBurst))
	p.Register(r)

	return server.Standard(logger, cfg.AllowedOrigins)(r)
}

func render(name string, vars any) ([]byte, error) {
	tmpl, err := template.ParseFS(static, name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func yamlToJSON(doc []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}

	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to convert openapi document: %w", err)
	}
	return out, nil
}
