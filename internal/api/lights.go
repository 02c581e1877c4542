package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/houm-bridge/internal/light"
)

// lightResponse is the JSON representation of one light.
type lightResponse struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Protocol   string         `json:"protocol"`
	On         bool           `json:"on"`
	Bri        int            `json:"bri"`
	Attributes map[string]any `json:"attributes"`
}

func toLightResponse(l *light.Light) lightResponse {
	st := l.State()
	return lightResponse{
		ID:         l.ID(),
		Name:       l.Name(),
		Kind:       string(l.Kind()),
		Protocol:   l.Protocol(),
		On:         st.On,
		Bri:        st.Brightness,
		Attributes: l.StateAttributes(),
	}
}

// handleListLights returns all lights, with optional query filters.
//
// Query parameters:
//   - kind: filter by kind (binary, dimmable)
//   - protocol: filter by protocol
func (s *Server) handleListLights(w http.ResponseWriter, r *http.Request) {
	var lights []*light.Light

	switch {
	case r.URL.Query().Get("kind") != "":
		lights = s.registry.ListByKind(light.Kind(r.URL.Query().Get("kind")))
	case r.URL.Query().Get("protocol") != "":
		lights = s.registry.ListByProtocol(r.URL.Query().Get("protocol"))
	default:
		lights = s.registry.List()
	}

	resp := make([]lightResponse, 0, len(lights))
	for _, l := range lights {
		resp = append(resp, toLightResponse(l))
	}

	writeJSON(w, http.StatusOK, map[string]any{"lights": resp, "count": len(resp)})
}

// handleGetLight returns a single light by device ID.
func (s *Server) handleGetLight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	l, err := s.registry.Get(id)
	if err != nil {
		if errors.Is(err, light.ErrLightNotFound) {
			writeNotFound(w, "light not found")
			return
		}
		writeInternalError(w, "failed to load light")
		return
	}

	writeJSON(w, http.StatusOK, toLightResponse(l))
}
