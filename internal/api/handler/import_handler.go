package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BienNg/eduinsight-sub000/internal/api/middleware"
	"github.com/BienNg/eduinsight-sub000/internal/dto"
	"github.com/BienNg/eduinsight-sub000/internal/importer"
	"github.com/BienNg/eduinsight-sub000/internal/service"
	"github.com/BienNg/eduinsight-sub000/internal/workbook"
	"github.com/BienNg/eduinsight-sub000/pkg/response"
)

// maxWait 长轮询的最长等待时间
const maxWait = 60 * time.Second

// ImportHandler 表格导入 HTTP 处理器
type ImportHandler struct {
	importSvc      service.ImportService
	maxUploadBytes int64
}

// NewImportHandler 创建 ImportHandler
func NewImportHandler(importSvc service.ImportService, maxUploadBytes int64) *ImportHandler {
	return &ImportHandler{importSvc: importSvc, maxUploadBytes: maxUploadBytes}
}

// Upload 上传表格并加入导入队列
// POST /api/v1/imports  (multipart: file + 可选课程元数据)
func (h *ImportHandler) Upload(c *gin.Context) {
	req, ok := h.readRequest(c)
	if !ok {
		return
	}

	job, err := h.importSvc.Enqueue(c.Request.Context(), req)
	if err != nil {
		h.handleImportError(c, err)
		return
	}
	response.Accepted(c, job)
}

// Validate 只做校验，不写入
// POST /api/v1/imports/validate
func (h *ImportHandler) Validate(c *gin.Context) {
	req, ok := h.readRequest(c)
	if !ok {
		return
	}

	result, err := h.importSvc.DryRun(req)
	if err != nil {
		h.handleImportError(c, err)
		return
	}
	response.OK(c, result)
}

// Status 队列状态
// GET /api/v1/imports/status
func (h *ImportHandler) Status(c *gin.Context) {
	response.OK(c, h.importSvc.Status())
}

// ListJobs 全部任务（新任务在前）
// GET /api/v1/imports
func (h *ImportHandler) ListJobs(c *gin.Context) {
	response.OK(c, h.importSvc.Jobs())
}

// GetJob 单个任务；wait=30s 时长轮询直到任务结束或等待决策
// GET /api/v1/imports/:id
func (h *ImportHandler) GetJob(c *gin.Context) {
	id := c.Param("id")

	wait, err := time.ParseDuration(c.DefaultQuery("wait", "0s"))
	if err != nil || wait < 0 {
		response.BadRequest(c, 10001, "wait must be a duration such as 30s")
		return
	}
	if wait == 0 {
		job, err := h.importSvc.Job(id)
		if err != nil {
			h.handleImportError(c, err)
			return
		}
		response.OK(c, job)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), min(wait, maxWait))
	defer cancel()
	job, err := h.importSvc.Wait(ctx, id)
	if errors.Is(err, context.DeadlineExceeded) {
		// 超时返回当前快照
		job, err = h.importSvc.Job(id)
	}
	if err != nil {
		h.handleImportError(c, err)
		return
	}
	response.OK(c, job)
}

// Decide 对等待中的导入给出决策（继续并留空时间 / 取消）
// POST /api/v1/imports/decision
func (h *ImportHandler) Decide(c *gin.Context) {
	var req dto.ImportDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request parameters")
		return
	}

	job, err := h.importSvc.Resume(*req.Confirm)
	if err != nil {
		h.handleImportError(c, err)
		return
	}
	response.OK(c, job)
}

// readRequest 解析 multipart 上传；失败时已写入响应
func (h *ImportHandler) readRequest(c *gin.Context) (*importer.Request, bool) {
	var form dto.ImportUploadForm
	if err := c.ShouldBind(&form); err != nil {
		if middleware.IsBodyTooLarge(err) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "request body too large")
			return nil, false
		}
		response.BadRequest(c, 10001, "invalid request parameters")
		return nil, false
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "request body too large")
			return nil, false
		}
		response.BadRequest(c, 12001, "missing spreadsheet file in field \"file\"")
		return nil, false
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "spreadsheet file too large")
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		response.InternalError(c)
		return nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.InternalError(c)
		return nil, false
	}

	req := &importer.Request{
		Filename:          fh.Filename,
		Data:              data,
		SheetIndex:        form.SheetIndex,
		AllowMissingTimes: form.AllowMissingTimes,
	}
	if form.Group != "" || form.Level != "" || form.Mode != "" {
		req.Metadata = &importer.CourseMetadata{
			GroupName:  form.Group,
			Level:      form.Level,
			Mode:       form.Mode,
			Language:   form.Language,
			SourceURL:  form.SourceURL,
			SheetIndex: form.SheetIndex,
		}
	}
	return req, true
}

func (h *ImportHandler) handleImportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyUpload):
		response.BadRequest(c, 12001, "uploaded file is empty")
	case errors.Is(err, service.ErrQueueNotRunning):
		response.Error(c, http.StatusServiceUnavailable, 12002, "import queue is not running")
	case errors.Is(err, workbook.ErrUnreadable):
		response.UnprocessableEntity(c, 12003, err.Error(), nil)
	case errors.Is(err, workbook.ErrSheetNotFound):
		response.UnprocessableEntity(c, 12004, err.Error(), nil)
	case errors.Is(err, service.ErrNoPendingDecision):
		response.Conflict(c, 12005, "no import is waiting for a decision")
	case errors.Is(err, service.ErrJobNotFound):
		response.NotFound(c, 12006, "import job not found")
	case errors.Is(err, context.Canceled):
		response.Error(c, http.StatusRequestTimeout, 12007, "request cancelled")
	default:
		response.InternalError(c)
	}
}
