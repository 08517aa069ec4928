package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/agentdeck/internal/agentcfg"
	"github.com/ashureev/agentdeck/internal/embedtheme"
	"github.com/ashureev/agentdeck/web"
	"github.com/go-chi/chi/v5"
)

// EmbedHandler serves the public embeddable chat widget. No principal
// is required: the embed token is the only credential.
type EmbedHandler struct {
	svc *agentcfg.Service
}

// NewEmbedHandler creates an embed handler over the config service.
func NewEmbedHandler(svc *agentcfg.Service) *EmbedHandler {
	return &EmbedHandler{svc: svc}
}

// RegisterRoutes registers the public embed route.
func (h *EmbedHandler) RegisterRoutes(r chi.Router) {
	r.Get("/embed/{token}", h.Widget)
}

type widgetAgent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type widgetConfig struct {
	Agent widgetAgent      `json:"agent"`
	Theme embedtheme.Theme `json:"theme"`
	Token string           `json:"token"`
}

// Widget resolves the embed token to an active agent and serves the
// widget shell with the normalized theme injected. Unknown and inactive
// tokens yield a not-found response rather than a widget.
func (h *EmbedHandler) Widget(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	agent, err := h.svc.AgentByEmbedToken(r.Context(), token)
	if err != nil {
		FailureError(w, r, err)
		return
	}

	params := map[string]string{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	theme := embedtheme.Resolve(params)

	title := theme.Title
	if title == "" {
		title = agent.Name
	}

	data := struct {
		Title  string
		Config widgetConfig
	}{
		Title: title,
		Config: widgetConfig{
			Agent: widgetAgent{ID: agent.ID, Name: agent.Name},
			Theme: theme,
			Token: token,
		},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.WidgetTemplate.Execute(w, data); err != nil {
		slog.Error("failed to render widget", "error", err)
	}
}
