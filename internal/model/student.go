package model

// Student 学员 — 对应集合 students
type Student struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Info      string            `json:"info"`
	Notes     string            `json:"notes"`
	CourseIDs []string          `json:"courseIds"`
	JoinDates map[string]string `json:"joinDates"` // courseId → 最早出勤日期 DD.MM.YYYY
}

// Teacher 教师 — 对应集合 teachers
type Teacher struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Country   string   `json:"country"`
	CourseIDs []string `json:"courseIds"`
}

// Month 月度汇总 — 对应集合 months，ID 由日期确定（YYYY-M）
type Month struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	SessionCount int      `json:"sessionCount"`
	CourseIDs    []string `json:"courseIds"`
	TeacherIDs   []string `json:"teacherIds"`
}
