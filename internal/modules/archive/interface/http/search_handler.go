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

// SearchHandler serves semantic queries over the indexed archive.
type SearchHandler struct {
	searchSvc service.SearchService
}

func NewSearchHandler(searchSvc service.SearchService) *SearchHandler {
	return &SearchHandler{searchSvc: searchSvc}
}

// Search runs a semantic query.
//
// Route: POST /search
// Auth: JWT (inherited from the authed group)
// Body: request.SearchRequest
// Response: respond.SearchRespond
func (h *SearchHandler) Search(c *gin.Context) {
	var req request.SearchRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	data, err := h.searchSvc.Search(c.Request.Context(), req)
	if err != nil {
		zlog.Warn("search request failed", zap.String("query", req.Query), zap.Error(err))
	}
	back.Result(c, data, err)
}
