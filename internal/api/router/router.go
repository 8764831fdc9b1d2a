package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/config"
	"github.com/BienNg/eduinsight-sub000/internal/api/handler"
	"github.com/BienNg/eduinsight-sub000/internal/api/middleware"
	"github.com/BienNg/eduinsight-sub000/internal/service"
	"github.com/BienNg/eduinsight-sub000/pkg/jwt"
	"github.com/BienNg/eduinsight-sub000/pkg/redis"
)

// jsonBodyLimit 非上传接口的请求体上限
const jsonBodyLimit = 1 << 20

// multipartOverhead 上传接口在文件上限之外为表单字段预留的空间
const multipartOverhead = 64 << 10

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时跳过 Token 黑名单与限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// nil *redis.Client 不能直接作为接口传入
	var blacklist middleware.Blacklist
	if rdb != nil {
		blacklist = rdb
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		v1.POST("/auth/login",
			middleware.BodyLimit(jsonBodyLimit),
			middleware.RateLimit(rdb, 10, time.Minute),
			h.Auth.Login,
		)

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist))
		authorized.Use(middleware.RoleAuth(service.RoleAdmin))
		authorized.Use(middleware.RateLimit(rdb, 300, time.Minute))

		// 表格导入（上传接口单独放宽请求体上限）
		imports := authorized.Group("/imports")
		{
			upload := middleware.BodyLimit(cfg.Import.MaxUploadBytes + multipartOverhead)
			imports.POST("", upload, h.Import.Upload)
			imports.POST("/validate", upload, h.Import.Validate)
			imports.GET("", h.Import.ListJobs)
			imports.GET("/status", h.Import.Status)
			imports.GET("/:id", h.Import.GetJob)
			imports.POST("/decision", middleware.BodyLimit(jsonBodyLimit), h.Import.Decide)
		}

		api := authorized.Group("")
		api.Use(middleware.BodyLimit(jsonBodyLimit))
		{
			api.POST("/auth/logout", h.Auth.Logout)
			api.GET("/auth/me", h.Auth.Me)

			// 课程
			courses := api.Group("/courses")
			{
				courses.GET("", h.Course.ListCourses)
				courses.GET("/:id", h.Course.GetCourse)
				courses.GET("/:id/sessions", h.Course.ListSessions)
				courses.GET("/:id/export", h.Export.ExportCourse)
				courses.GET("/:id/calendar.ics", h.Export.CourseCalendar)
			}

			// 学员
			students := api.Group("/students")
			{
				students.GET("", h.Student.ListStudents)
				students.GET("/:id", h.Student.GetStudent)
				students.POST("/merge", h.Student.MergeStudents)
			}

			// 教师
			teachers := api.Group("/teachers")
			{
				teachers.GET("", h.Catalog.ListTeachers)
				teachers.GET("/:id/calendar.ics", h.Export.TeacherCalendar)
			}

			api.GET("/months", h.Catalog.ListMonths)
		}
	}

	return r
}
