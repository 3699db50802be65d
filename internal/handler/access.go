package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coursepay/emi-engine/internal/service"
	"github.com/coursepay/emi-engine/pkg/response"
)

// AccessHandler exposes the course access check.
type AccessHandler struct {
	gate *service.AccessGate
}

func NewAccessHandler(gate *service.AccessGate) *AccessHandler {
	return &AccessHandler{gate: gate}
}

// CheckAccess handles GET /api/v1/learners/{learnerId}/courses/{courseId}/access
func (h *AccessHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	resp, err := h.gate.Check(r.Context(), vars["learnerId"], vars["courseId"])
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, resp)
}
