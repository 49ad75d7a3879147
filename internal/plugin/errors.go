package plugin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/plugify/internal/server"
	"github.com/desertthunder/plugify/internal/shared"
)

const msgPlaylistNotFound = "Playlist not found"

type upstreamDetail struct {
	Detail         string `json:"detail"`
	UpstreamStatus int    `json:"upstream_status"`
	UpstreamBody   any    `json:"upstream_body"`
}

// writeError maps err onto a status code and a {"detail": ...} body.
func (p *Plugin) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if ue, ok := shared.AsUnauthorizedError(err); ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		server.WriteDetail(w, ue.StatusCode(), ue.Message())
		return
	}

	if ue, ok := shared.AsUpstreamError(err); ok {
		p.logger.Warn("upstream failure", "path", r.URL.Path, "status", ue.Status, "message", ue.Message)
		server.WriteJSON(w, ue.StatusCode(), upstreamDetail{
			Detail:         ue.Message,
			UpstreamStatus: ue.Status,
			UpstreamBody:   upstreamBody(ue.Body),
		})
		return
	}

	switch {
	case errors.Is(err, shared.ErrPlaylistNotFound):
		server.WriteDetail(w, http.StatusNotFound, msgPlaylistNotFound)
	case errors.Is(err, shared.ErrInvalidInput):
		server.WriteDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrMalformedResponse), errors.Is(err, shared.ErrAPIRequest):
		p.logger.Error("upstream unusable", "path", r.URL.Path, "error", err)
		server.WriteDetail(w, http.StatusBadGateway, err.Error())
	default:
		p.logger.Error("request failed", "path", r.URL.Path, "error", err)
		server.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

// upstreamBody embeds JSON bodies as-is and falls back to the raw text.
func upstreamBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}
