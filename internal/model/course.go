package model

import "time"

// Course 课程 — 对应集合 courses
// 每个 (group, level) 唯一；首次导入创建，之后只做增量合并
type Course struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Level          string          `json:"level"`
	GroupID        string          `json:"groupId"`
	Mode           string          `json:"mode"`     // Online | Offline
	Language       string          `json:"language"` // 授课语言，来自元数据
	Status         string          `json:"status"`   // ongoing | completed
	StartDate      string          `json:"startDate"`
	EndDate        string          `json:"endDate"`
	SessionIDs     []string        `json:"sessionIds"`
	StudentIDs     []string        `json:"studentIds"`
	TeacherIDs     []string        `json:"teacherIds"`
	WeekdayPattern *WeekdayPattern `json:"weekdayPattern,omitempty"`
	SourceURL      string          `json:"sourceUrl,omitempty"`
	SheetName      string          `json:"sheetName,omitempty"`
	SheetIndex     int             `json:"sheetIndex"`
	LastUpdated    time.Time       `json:"lastUpdated"`
}

// WeekdayPattern 上课星期规律摘要
type WeekdayPattern struct {
	Weekdays     []string         `json:"weekdays"`
	Counts       [7]int           `json:"counts"` // 周一 = 0
	SpanWeeks    int              `json:"spanWeeks"`
	Outliers     []WeekdayOutlier `json:"outliers"`
	MissingDates []string         `json:"missingDates"`
}

// WeekdayOutlier 不在规律星期上的课次
type WeekdayOutlier struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
}

// Group 学员组（如 G12），可跨越多个级别的课程
type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	CourseIDs []string `json:"courseIds"`
}
