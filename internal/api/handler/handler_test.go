package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BienNg/eduinsight-sub000/internal/api/middleware"
	"github.com/BienNg/eduinsight-sub000/internal/dto"
	"github.com/BienNg/eduinsight-sub000/internal/importer"
	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/service"
	"github.com/BienNg/eduinsight-sub000/internal/workbook"
	"github.com/BienNg/eduinsight-sub000/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult *dto.TokenResponse
	loginErr    error
	logoutErr   error
	loggedOut   string
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Logout(_ context.Context, jti string, _ time.Time) error {
	m.loggedOut = jti
	return m.logoutErr
}

// ── Mock ImportService ──

type mockImportService struct {
	enqueued   *importer.Request
	enqueueErr error
	job        *service.ImportJob
	jobErr     error
	resumeErr  error
	confirmed  *bool
	dryRun     *importer.ValidationResult
	dryRunErr  error
}

func (m *mockImportService) Start(context.Context) error { return nil }
func (m *mockImportService) Enqueue(_ context.Context, req *importer.Request) (*service.ImportJob, error) {
	m.enqueued = req
	if m.enqueueErr != nil {
		return nil, m.enqueueErr
	}
	return &service.ImportJob{ID: "job-1", Filename: req.Filename, Status: service.JobQueued}, nil
}
func (m *mockImportService) Resume(confirmed bool) (*service.ImportJob, error) {
	m.confirmed = &confirmed
	return m.job, m.resumeErr
}
func (m *mockImportService) Status() service.QueueStatus {
	return service.QueueStatus{State: service.QueueIdle}
}
func (m *mockImportService) Job(string) (*service.ImportJob, error) { return m.job, m.jobErr }
func (m *mockImportService) Jobs() []service.ImportJob            { return nil }
func (m *mockImportService) Wait(context.Context, string) (*service.ImportJob, error) {
	return m.job, m.jobErr
}
func (m *mockImportService) DryRun(*importer.Request) (*importer.ValidationResult, error) {
	return m.dryRun, m.dryRunErr
}

// ── Mock CourseService ──

type mockCourseService struct {
	list   []dto.CourseSummary
	detail *dto.CourseDetail
	err    error
}

func (m *mockCourseService) List(_ context.Context, _ *dto.CourseListRequest) ([]dto.CourseSummary, int64, error) {
	return m.list, int64(len(m.list)), m.err
}
func (m *mockCourseService) Get(context.Context, string) (*dto.CourseDetail, error) {
	return m.detail, m.err
}
func (m *mockCourseService) Sessions(context.Context, string) ([]model.Session, error) {
	return nil, m.err
}

// ── Mock StudentService ──

type mockStudentService struct {
	mergeResult *dto.MergeStudentsResponse
	err         error
}

func (m *mockStudentService) List(context.Context, *dto.StudentListRequest) ([]model.Student, int64, error) {
	return nil, 0, m.err
}
func (m *mockStudentService) Get(context.Context, string) (*model.Student, error) {
	return nil, m.err
}
func (m *mockStudentService) Merge(context.Context, *dto.MergeStudentsRequest) (*dto.MergeStudentsResponse, error) {
	return m.mergeResult, m.err
}

// ── Mock ExportService / CalendarService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportCourse(context.Context, string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

type mockCalendarService struct {
	out string
	err error
}

func (m *mockCalendarService) CourseCalendar(context.Context, string) (string, string, error) {
	return m.out, "G12_A1.1.ics", m.err
}
func (m *mockCalendarService) TeacherCalendar(context.Context, string) (string, string, error) {
	return m.out, "Maria_Lopez.ics", m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuth(c *gin.Context) {
	c.Set(middleware.CtxUsername, "admin")
	c.Set(middleware.CtxRole, "admin")
	c.Set(middleware.CtxTokenJTI, "test-jti")
	c.Set(middleware.CtxTokenExp, time.Now().Add(15*time.Minute))
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// multipartBody 构造带 file 字段的上传请求体
func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		fw.Write(content)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{loginResult: &dto.TokenResponse{AccessToken: "test-access-token", ExpiresIn: 3600}}
	h := NewAuthHandler(mock)

	r := gin.New()
	r.POST("/auth/login", h.Login)
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{Username: "admin", Password: "geheim"}))
	req.Header.Set("Content-Type", "application/json")
	w := serve(r, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	r := gin.New()
	r.POST("/auth/login", h.Login)
	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader("invalid json"))
	req.Header.Set("Content-Type", "application/json")

	if w := serve(r, req); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})

	r := gin.New()
	r.POST("/auth/login", h.Login)
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{Username: "admin", Password: "wrong"}))
	req.Header.Set("Content-Type", "application/json")
	w := serve(r, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11001 {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock)

	r := gin.New()
	r.POST("/auth/logout", func(c *gin.Context) {
		setAuth(c)
		h.Logout(c)
	})
	w := serve(r, httptest.NewRequest("POST", "/auth/logout", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.loggedOut != "test-jti" {
		t.Errorf("expected jti test-jti to be revoked, got %q", mock.loggedOut)
	}
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	r := gin.New()
	r.GET("/auth/me", h.Me)
	if w := serve(r, httptest.NewRequest("GET", "/auth/me", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ImportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestImportHandler_Upload_Accepted(t *testing.T) {
	mock := &mockImportService{}
	h := NewImportHandler(mock, 1<<20)

	r := gin.New()
	r.POST("/imports", h.Upload)
	body, ct := multipartBody(t, "kurs.xlsx", []byte("xlsx"), map[string]string{
		"group": "G12", "level": "A1.1", "mode": "Online", "sheet_index": "1",
	})
	req := httptest.NewRequest("POST", "/imports", body)
	req.Header.Set("Content-Type", ct)
	w := serve(r, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if mock.enqueued == nil || mock.enqueued.Filename != "kurs.xlsx" || string(mock.enqueued.Data) != "xlsx" {
		t.Fatalf("unexpected enqueued request: %+v", mock.enqueued)
	}
	meta := mock.enqueued.Metadata
	if meta == nil || meta.GroupName != "G12" || meta.Level != "A1.1" || meta.SheetIndex != 1 {
		t.Errorf("expected metadata from form, got %+v", meta)
	}
}

func TestImportHandler_Upload_NoMetadata(t *testing.T) {
	mock := &mockImportService{}
	h := NewImportHandler(mock, 1<<20)

	r := gin.New()
	r.POST("/imports", h.Upload)
	body, ct := multipartBody(t, "G12_A1.1_Online.xlsx", []byte("xlsx"), map[string]string{"sheet_index": "2"})
	req := httptest.NewRequest("POST", "/imports", body)
	req.Header.Set("Content-Type", ct)

	if w := serve(r, req); w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if mock.enqueued.Metadata != nil || mock.enqueued.SheetIndex != 2 {
		t.Errorf("expected filename-based request with sheet index 2, got %+v", mock.enqueued)
	}
}

func TestImportHandler_Upload_MissingFile(t *testing.T) {
	h := NewImportHandler(&mockImportService{}, 1<<20)

	r := gin.New()
	r.POST("/imports", h.Upload)
	body, ct := multipartBody(t, "", nil, map[string]string{"group": "G12"})
	req := httptest.NewRequest("POST", "/imports", body)
	req.Header.Set("Content-Type", ct)
	w := serve(r, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 12001 {
		t.Errorf("expected error code 12001, got %d", resp.Code)
	}
}

func TestImportHandler_Upload_TooLarge(t *testing.T) {
	h := NewImportHandler(&mockImportService{}, 4)

	r := gin.New()
	r.POST("/imports", h.Upload)
	body, ct := multipartBody(t, "kurs.xlsx", []byte("more than four bytes"), nil)
	req := httptest.NewRequest("POST", "/imports", body)
	req.Header.Set("Content-Type", ct)

	if w := serve(r, req); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}

func TestImportHandler_Validate_Unreadable(t *testing.T) {
	h := NewImportHandler(&mockImportService{dryRunErr: workbook.ErrUnreadable}, 1<<20)

	r := gin.New()
	r.POST("/imports/validate", h.Validate)
	body, ct := multipartBody(t, "kurs.xlsx", []byte("xlsx"), nil)
	req := httptest.NewRequest("POST", "/imports/validate", body)
	req.Header.Set("Content-Type", ct)

	if w := serve(r, req); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

func TestImportHandler_Decide(t *testing.T) {
	mock := &mockImportService{job: &service.ImportJob{ID: "job-1", Status: service.JobProcessing}}
	h := NewImportHandler(mock, 1<<20)

	r := gin.New()
	r.POST("/imports/decision", h.Decide)
	req := httptest.NewRequest("POST", "/imports/decision", strings.NewReader(`{"confirm": false}`))
	req.Header.Set("Content-Type", "application/json")

	if w := serve(r, req); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.confirmed == nil || *mock.confirmed {
		t.Errorf("expected confirm=false to be forwarded")
	}
}

func TestImportHandler_Decide_NoPending(t *testing.T) {
	h := NewImportHandler(&mockImportService{resumeErr: service.ErrNoPendingDecision}, 1<<20)

	r := gin.New()
	r.POST("/imports/decision", h.Decide)
	req := httptest.NewRequest("POST", "/imports/decision", strings.NewReader(`{"confirm": true}`))
	req.Header.Set("Content-Type", "application/json")

	if w := serve(r, req); w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestImportHandler_Decide_MissingConfirm(t *testing.T) {
	h := NewImportHandler(&mockImportService{}, 1<<20)

	r := gin.New()
	r.POST("/imports/decision", h.Decide)
	req := httptest.NewRequest("POST", "/imports/decision", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	if w := serve(r, req); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestImportHandler_GetJob(t *testing.T) {
	r := gin.New()
	h := NewImportHandler(&mockImportService{jobErr: service.ErrJobNotFound}, 1<<20)
	r.GET("/imports/:id", h.GetJob)

	if w := serve(r, httptest.NewRequest("GET", "/imports/x", nil)); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if w := serve(r, httptest.NewRequest("GET", "/imports/x?wait=soon", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid wait, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// Course / Student Handler Tests
// ═══════════════════════════════════════════════════════════

func TestCourseHandler_ListCourses(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{list: []dto.CourseSummary{{ID: "c1", Name: "G12 A1.1"}}})

	r := gin.New()
	r.GET("/courses", h.ListCourses)
	w := serve(r, httptest.NewRequest("GET", "/courses?status=ongoing", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = serve(r, httptest.NewRequest("GET", "/courses?status=paused", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", w.Code)
	}
}

func TestCourseHandler_GetCourse_NotFound(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{err: service.ErrCourseNotFound})

	r := gin.New()
	r.GET("/courses/:id", h.GetCourse)
	w := serve(r, httptest.NewRequest("GET", "/courses/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 13001 {
		t.Errorf("expected error code 13001, got %d", resp.Code)
	}
}

func TestStudentHandler_Merge_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrStudentNotFound, http.StatusNotFound},
		{service.ErrMergeSameStudent, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := NewStudentHandler(&mockStudentService{err: tc.err})
		r := gin.New()
		r.POST("/students/merge", h.MergeStudents)
		req := httptest.NewRequest("POST", "/students/merge", jsonBody(dto.MergeStudentsRequest{SourceID: "a", TargetID: "b"}))
		req.Header.Set("Content-Type", "application/json")

		if w := serve(r, req); w.Code != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, w.Code)
		}
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportCourse(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("excel content"), filename: "G12_A1.1_Online.xlsx"}
	h := NewExportHandler(mock, &mockCalendarService{})

	r := gin.New()
	r.GET("/courses/:id/export", h.ExportCourse)
	w := serve(r, httptest.NewRequest("GET", "/courses/c1/export", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "G12_A1.1_Online.xlsx") {
		t.Errorf("unexpected Content-Disposition: %s", cd)
	}
}

func TestExportHandler_ExportCourse_NoSessions(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoSessions}, &mockCalendarService{})

	r := gin.New()
	r.GET("/courses/:id/export", h.ExportCourse)
	if w := serve(r, httptest.NewRequest("GET", "/courses/c1/export", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestExportHandler_TeacherCalendar(t *testing.T) {
	h := NewExportHandler(&mockExportService{}, &mockCalendarService{out: "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"})

	r := gin.New()
	r.GET("/teachers/:id/calendar.ics", h.TeacherCalendar)
	w := serve(r, httptest.NewRequest("GET", "/teachers/t1/calendar.ics", nil))

	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/calendar") {
		t.Errorf("expected calendar response, got %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	h = NewExportHandler(&mockExportService{}, &mockCalendarService{err: service.ErrTeacherNotFound})
	r = gin.New()
	r.GET("/teachers/:id/calendar.ics", h.TeacherCalendar)
	if w := serve(r, httptest.NewRequest("GET", "/teachers/t1/calendar.ics", nil)); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
