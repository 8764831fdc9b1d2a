package model

// Session 课次 — 对应集合 sessions
//
// 约束：status=completed 时 TeacherID 必须非空。
type Session struct {
	ID           string                     `json:"id"`
	CourseID     string                     `json:"courseId"`
	Title        string                     `json:"title"`
	Date         string                     `json:"date"`      // DD.MM.YYYY，未知时为空
	StartTime    string                     `json:"startTime"` // HH:MM
	EndTime      string                     `json:"endTime"`
	TeacherID    string                     `json:"teacherId"`
	Content      string                     `json:"content"`
	ContentItems []ContentItem              `json:"contentItems"`
	Attendance   map[string]AttendanceEntry `json:"attendance"`
	MonthID      string                     `json:"monthId"`
	SessionOrder int                        `json:"sessionOrder"`
	Duration     float64                    `json:"duration"` // 计费课时（小时）
	Status       string                     `json:"status"`
}

// ContentItem 课次内容条目（续行追加）
type ContentItem struct {
	Content string `json:"content"`
	Notes   string `json:"notes"`
}

// AttendanceStatus 出勤状态
type AttendanceStatus string

const (
	AttendancePresent         AttendanceStatus = "present"
	AttendanceAbsent          AttendanceStatus = "absent"
	AttendanceSick            AttendanceStatus = "sick"
	AttendanceTechnicalIssues AttendanceStatus = "technical_issues"
	AttendanceUnknown         AttendanceStatus = "unknown"
)

// AttendanceEntry 单个学员在某课次的出勤记录
type AttendanceEntry struct {
	Status  AttendanceStatus `json:"status"`
	Comment string           `json:"comment"`
}
