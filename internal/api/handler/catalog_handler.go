package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/BienNg/eduinsight-sub000/internal/service"
	"github.com/BienNg/eduinsight-sub000/pkg/response"
)

// CatalogHandler 教师与月度汇总 HTTP 处理器
type CatalogHandler struct {
	catalogSvc service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(catalogSvc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// ListTeachers GET /api/v1/teachers
func (h *CatalogHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.catalogSvc.ListTeachers(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, teachers)
}

// ListMonths GET /api/v1/months
func (h *CatalogHandler) ListMonths(c *gin.Context) {
	months, err := h.catalogSvc.ListMonths(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, months)
}
