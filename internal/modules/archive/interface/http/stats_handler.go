package http

import (
	"CaseVault/internal/modules/archive/application/service"
	"CaseVault/pkg/back"

	"github.com/gin-gonic/gin"
)

// StatsHandler exposes indexing progress counters.
type StatsHandler struct {
	statsSvc service.StatsService
}

func NewStatsHandler(statsSvc service.StatsService) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc}
}

// Stats reports content-store counters plus the vector point count.
//
// Route: GET /stats
// Auth: JWT (inherited from the authed group)
// Response: respond.StatsRespond
func (h *StatsHandler) Stats(c *gin.Context) {
	data, err := h.statsSvc.Stats(c.Request.Context())
	back.Result(c, data, err)
}
