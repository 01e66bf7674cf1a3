package http

import (
	"CaseVault/internal/modules/archive/application/dto/request"
	"CaseVault/internal/modules/archive/application/service"
	"CaseVault/pkg/back"
	"CaseVault/pkg/xerr"
	"CaseVault/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler exposes maintenance operations. Batch indexing stays
// CLI-triggered; only reconciliation is reachable over HTTP.
type AdminHandler struct {
	reconcileSvc service.ReconcileService
}

func NewAdminHandler(reconcileSvc service.ReconcileService) *AdminHandler {
	return &AdminHandler{reconcileSvc: reconcileSvc}
}

// Reconcile repairs drift between the content store and the vector index.
//
// Route: POST /admin/reconcile
// Auth: JWT (inherited from the authed group)
// Body: request.ReconcileRequest; an empty body runs all phases.
// Response: respond.ReconcileRespond
func (h *AdminHandler) Reconcile(c *gin.Context) {
	var req request.ReconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			zlog.Error(err.Error())
			back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
			return
		}
	}

	data, err := h.reconcileSvc.Reconcile(c.Request.Context(), req)
	if err != nil {
		zlog.Warn("reconcile request failed", zap.Error(err))
	}
	back.Result(c, data, err)
}
