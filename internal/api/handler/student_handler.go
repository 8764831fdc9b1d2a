package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/BienNg/eduinsight-sub000/internal/dto"
	"github.com/BienNg/eduinsight-sub000/internal/service"
	"github.com/BienNg/eduinsight-sub000/pkg/response"
)

// StudentHandler 学员 HTTP 处理器
type StudentHandler struct {
	studentSvc service.StudentService
}

// NewStudentHandler 创建 StudentHandler
func NewStudentHandler(studentSvc service.StudentService) *StudentHandler {
	return &StudentHandler{studentSvc: studentSvc}
}

// ListStudents 学员列表
// GET /api/v1/students?keyword=&course_id=&page=&page_size=
func (h *StudentHandler) ListStudents(c *gin.Context) {
	var req dto.StudentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid query parameters")
		return
	}

	list, total, err := h.studentSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetStudent 学员详情
// GET /api/v1/students/:id
func (h *StudentHandler) GetStudent(c *gin.Context) {
	st, err := h.studentSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleStudentError(c, err)
		return
	}
	response.OK(c, st)
}

// MergeStudents 合并重复学员
// POST /api/v1/students/merge
func (h *StudentHandler) MergeStudents(c *gin.Context) {
	var req dto.MergeStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request parameters")
		return
	}

	result, err := h.studentSvc.Merge(c.Request.Context(), &req)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *StudentHandler) handleStudentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 14001, "student not found")
	case errors.Is(err, service.ErrMergeSameStudent):
		response.BadRequest(c, 14002, "cannot merge a student into itself")
	default:
		response.InternalError(c)
	}
}
