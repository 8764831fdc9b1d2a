package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrMissingGroup = errors.New("group code missing")
	ErrMissingLevel = errors.New("course level missing")
	ErrMissingMode  = errors.New("delivery mode missing")
)

const (
	ModeOnline  = "Online"
	ModeOffline = "Offline"

	// K 组为会话课，不分级别
	noLevelClass = "K"
)

var (
	groupPattern       = regexp.MustCompile(`(?:^|[^A-Za-z])([GMPK])(\d+)`)
	detailLevelPattern = regexp.MustCompile(`([ABC][12])\.(\d)`)
	coarseLevelPattern = regexp.MustCompile(`([ABC][12])`)
)

// CourseMetadata 程序化导入时由调用方提供的课程信息
// 提供时跳过文件名/工作表名解析，但仍按相同规则校验必填项
type CourseMetadata struct {
	GroupName  string `json:"groupName"`
	Level      string `json:"level"`
	Mode       string `json:"mode"`
	Language   string `json:"language"`
	SourceURL  string `json:"sourceUrl,omitempty"`
	SheetName  string `json:"sheetName,omitempty"`
	SheetIndex int    `json:"sheetIndex,omitempty"`
}

// CourseInfo 课程识别结果
type CourseInfo struct {
	Group      string // 如 G12
	GroupClass string // 组别类型字母 G/M/P/K
	Level      string // 如 A1.1，K 组为空
	Mode       string // Online | Offline
	Language   string
	SourceURL  string
	SheetName  string
	SheetIndex int
}

// CourseName 课程显示名：组名 + 级别
func (i *CourseInfo) CourseName() string {
	if i.Level == "" {
		return i.Group
	}
	return i.Group + " " + i.Level
}

// RequiresLevel 该组别类型是否需要级别
func RequiresLevel(groupClass string) bool {
	return !strings.EqualFold(groupClass, noLevelClass)
}

// ExtractCourseInfo 从文件名与工作表名（或调用方元数据）中识别课程
func ExtractCourseInfo(filename, sheetName string, meta *CourseMetadata) (*CourseInfo, error) {
	if meta != nil {
		return infoFromMetadata(meta, sheetName)
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	sources := []string{base, sheetName}
	info := &CourseInfo{SheetName: sheetName}

	for _, src := range sources {
		if m := groupPattern.FindStringSubmatch(src); m != nil {
			info.GroupClass = m[1]
			info.Group = m[1] + m[2]
			break
		}
	}
	if info.Group == "" {
		return nil, fmt.Errorf("%w in %q / sheet %q: name the file like \"G12_A1.1_Online.xlsx\" or pass the group via metadata", ErrMissingGroup, filename, sheetName)
	}

	if RequiresLevel(info.GroupClass) {
		info.Level = extractLevel(sources)
		if info.Level == "" {
			return nil, fmt.Errorf("%w for group %s in %q: add a level such as \"A1.1\" or \"B2\" to the file or sheet name", ErrMissingLevel, info.Group, filename)
		}
	}

	info.Mode = extractMode(sources)
	if info.Mode == "" {
		return nil, fmt.Errorf("%w for %s: add \"Online\" or \"Offline\" to the file or sheet name", ErrMissingMode, info.CourseName())
	}
	return info, nil
}

func extractLevel(sources []string) string {
	for _, src := range sources {
		if m := detailLevelPattern.FindStringSubmatch(src); m != nil {
			return m[1] + "." + m[2]
		}
	}
	for _, src := range sources {
		if m := coarseLevelPattern.FindStringSubmatch(src); m != nil {
			return m[1]
		}
	}
	return ""
}

func extractMode(sources []string) string {
	for _, src := range sources {
		lower := strings.ToLower(src)
		switch {
		case strings.Contains(lower, "offline"):
			return ModeOffline
		case strings.Contains(lower, "online"):
			return ModeOnline
		}
	}
	return ""
}

func infoFromMetadata(meta *CourseMetadata, sheetName string) (*CourseInfo, error) {
	group := strings.ToUpper(strings.TrimSpace(meta.GroupName))
	if group == "" {
		return nil, fmt.Errorf("%w: metadata.groupName is empty, set it to a code such as \"G12\"", ErrMissingGroup)
	}
	info := &CourseInfo{
		Group:      group,
		GroupClass: group[:1],
		Level:      strings.TrimSpace(meta.Level),
		Language:   strings.TrimSpace(meta.Language),
		SourceURL:  meta.SourceURL,
		SheetName:  meta.SheetName,
		SheetIndex: meta.SheetIndex,
	}
	if info.SheetName == "" {
		info.SheetName = sheetName
	}
	if RequiresLevel(info.GroupClass) && info.Level == "" {
		return nil, fmt.Errorf("%w: metadata.level is empty for group %s, set it to a level such as \"A1.1\"", ErrMissingLevel, group)
	}
	if !RequiresLevel(info.GroupClass) {
		info.Level = ""
	}
	switch strings.ToLower(strings.TrimSpace(meta.Mode)) {
	case "online":
		info.Mode = ModeOnline
	case "offline":
		info.Mode = ModeOffline
	case "":
		return nil, fmt.Errorf("%w: metadata.mode is empty for %s, use \"Online\" or \"Offline\"", ErrMissingMode, info.CourseName())
	default:
		info.Mode = strings.TrimSpace(meta.Mode)
	}
	return info, nil
}
