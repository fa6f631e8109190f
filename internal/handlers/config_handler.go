package handlers

import (
	"net/http"

	"github.com/ternarybob/webpscan/internal/common"
)

// ConfigHandler exposes the subset of server configuration the client needs
// to render its submission form (whether to show the email field).
type ConfigHandler struct {
	email common.EmailConfig
}

func NewConfigHandler(email common.EmailConfig) *ConfigHandler {
	return &ConfigHandler{email: email}
}

type configResponse struct {
	EmailEnabled bool `json:"emailEnabled"`
}

// Get handles GET /api/config.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, configResponse{EmailEnabled: h.email.Enabled})
}
