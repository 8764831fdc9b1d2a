package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/BienNg/eduinsight-sub000/internal/service"
	"github.com/BienNg/eduinsight-sub000/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器（Excel + iCalendar）
type ExportHandler struct {
	exportSvc   service.ExportService
	calendarSvc service.CalendarService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, calendarSvc service.CalendarService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, calendarSvc: calendarSvc}
}

// ExportCourse 导出课程表格
// GET /api/v1/courses/:id/export
func (h *ExportHandler) ExportCourse(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	attachment(c, filename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// CourseCalendar 课程日历
// GET /api/v1/courses/:id/calendar.ics
func (h *ExportHandler) CourseCalendar(c *gin.Context) {
	out, filename, err := h.calendarSvc.CourseCalendar(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	attachment(c, filename)
	c.Data(http.StatusOK, icsContentType, []byte(out))
}

// TeacherCalendar 教师日历
// GET /api/v1/teachers/:id/calendar.ics
func (h *ExportHandler) TeacherCalendar(c *gin.Context) {
	out, filename, err := h.calendarSvc.TeacherCalendar(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	attachment(c, filename)
	c.Data(http.StatusOK, icsContentType, []byte(out))
}

// attachment 设置下载响应头
func attachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 13001, "course not found")
	case errors.Is(err, service.ErrTeacherNotFound):
		response.NotFound(c, 15001, "teacher not found")
	case errors.Is(err, service.ErrExportNoSessions):
		response.BadRequest(c, 16101, "course has no sessions to export")
	default:
		response.InternalError(c)
	}
}
