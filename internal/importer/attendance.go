package importer

import (
	"strconv"
	"strings"

	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/workbook"
)

// ColorPolicy 填充色 → 出勤状态的判定策略
// 无法判定时返回 AttendanceUnknown，由文本兜底
type ColorPolicy interface {
	Classify(fill string) model.AttendanceStatus
}

// ── 启发式策略 ──

// HeuristicColorPolicy 固定色表 + 红/粉色主导规则
type HeuristicColorPolicy struct {
	Green map[string]bool
	Red   map[string]bool

	// 红色主导：R ≥ RedMin 且 R 比 G、B 都高出 Margin
	RedMin int
	Margin int
	// 粉色：R ≥ PinkRedMin、B ≥ PinkBlueMin、G < PinkGreenMax
	PinkRedMin   int
	PinkBlueMin  int
	PinkGreenMax int
}

// DefaultColorPolicy 表格中实际使用过的出勤色
func DefaultColorPolicy() *HeuristicColorPolicy {
	return &HeuristicColorPolicy{
		Green: setOf("00FF00", "B6D7A8", "93C47D", "6AA84F", "D9EAD3", "C6EFCE", "00B050", "92D050", "34A853"),
		Red:   setOf("FF0000", "EA9999", "F4CCCC", "E06666", "CC0000", "FFC7CE", "FF9999"),

		RedMin: 180,
		Margin: 50,

		PinkRedMin:   200,
		PinkBlueMin:  150,
		PinkGreenMax: 150,
	}
}

func (p *HeuristicColorPolicy) Classify(fill string) model.AttendanceStatus {
	c := workbook.NormalizeColor(fill)
	if c == "" || c == "FFFFFF" || c == "000000" {
		return model.AttendanceUnknown
	}
	if p.Green[c] {
		return model.AttendancePresent
	}
	if p.Red[c] {
		return model.AttendanceAbsent
	}
	r, g, b, ok := splitRGB(c)
	if !ok {
		return model.AttendanceUnknown
	}
	if r >= p.RedMin && r-g >= p.Margin && r-b >= p.Margin {
		return model.AttendanceAbsent
	}
	if r >= p.PinkRedMin && b >= p.PinkBlueMin && g < p.PinkGreenMax {
		return model.AttendanceAbsent
	}
	return model.AttendanceUnknown
}

// ── 精确色板策略 ──

// PaletteColorPolicy 仅按色码精确查表
type PaletteColorPolicy map[string]model.AttendanceStatus

func (p PaletteColorPolicy) Classify(fill string) model.AttendanceStatus {
	if s, ok := p[workbook.NormalizeColor(fill)]; ok {
		return s
	}
	return model.AttendanceUnknown
}

func setOf(codes ...string) map[string]bool {
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	return m
}

func splitRGB(hex string) (r, g, b int, ok bool) {
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF), true
}

// ── 文本兜底 ──

// 纯状态标记，不作为备注
var (
	presentTokens = []string{"true", "anwesend", "present", "x", "ja"}
	absentTokens  = []string{"false", "abwesend", "absent", "nein"}
)

var (
	sickMarkers      = []string{"krank", "sick"}
	technicalMarkers = []string{"kamera aus", "mic aus", "mikro aus", "camera off"}
)

// statusFromText 文本 → 状态；第二个返回值表示文本是否仅为状态标记
func statusFromText(text string) (model.AttendanceStatus, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return model.AttendanceUnknown, true
	}
	for _, t := range presentTokens {
		if lower == t {
			return model.AttendancePresent, true
		}
	}
	for _, t := range absentTokens {
		if lower == t {
			return model.AttendanceAbsent, true
		}
	}
	for _, m := range sickMarkers {
		if strings.Contains(lower, m) {
			return model.AttendanceSick, false
		}
	}
	for _, m := range technicalMarkers {
		if strings.Contains(lower, m) {
			return model.AttendanceTechnicalIssues, false
		}
	}
	return model.AttendanceUnknown, false
}

// DecodeAttendance 解析单个学员单元格的出勤
//
// 优先看填充色；颜色无法判定时看文本。批注或自由文本无论状态如何都记为备注。
func DecodeAttendance(cell workbook.Cell, format workbook.CellFormat, policy ColorPolicy) model.AttendanceEntry {
	entry := model.AttendanceEntry{Status: model.AttendanceUnknown}
	if policy != nil && format.Fill != "" {
		entry.Status = policy.Classify(format.Fill)
	}

	var text string
	switch cell.Kind {
	case workbook.CellText:
		text = cell.Text
	case workbook.CellNumber:
		// 布尔单元格以 1/0 读出
		if entry.Status == model.AttendanceUnknown {
			switch cell.Number {
			case 1:
				entry.Status = model.AttendancePresent
			case 0:
				entry.Status = model.AttendanceAbsent
			}
		}
	}

	textStatus, markerOnly := statusFromText(text)
	if entry.Status == model.AttendanceUnknown {
		entry.Status = textStatus
	}

	var comments []string
	if note := strings.TrimSpace(format.Note); note != "" {
		comments = append(comments, note)
	}
	if !markerOnly {
		comments = append(comments, strings.TrimSpace(text))
	}
	entry.Comment = strings.Join(comments, "; ")
	return entry
}

// Recordable 是否需要写入出勤表
func Recordable(e model.AttendanceEntry) bool {
	return e.Status != model.AttendanceUnknown || e.Comment != ""
}
