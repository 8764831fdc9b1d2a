package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/workbook"
)

const (
	DateLayout = "02.01.2006"

	minSheetYear = 2020
	maxSheetYear = 2030

	longSessionMinutes = 110
)

// 表格序列日的零点：1899-12-31，序列日 ≥ 60 时需修正 1900 年闰年错误
var serialEpoch = time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)

// ── 日期 ──

// SerialToDate 表格序列日 → UTC 日期（忽略小数部分的时间）
func SerialToDate(serial float64) time.Time {
	days := int(math.Floor(serial))
	if days >= 60 {
		days--
	}
	return serialEpoch.AddDate(0, 0, days)
}

// DateToSerial SerialToDate 的逆运算
func DateToSerial(t time.Time) float64 {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := int(d.Sub(serialEpoch).Hours() / 24)
	if days >= 60 {
		days++
	}
	return float64(days)
}

// ParseDateString 解析 DD.MM.YYYY（日/月允许一位数）
func ParseDateString(s string) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return time.Time{}, false
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || len(parts[0]) > 2 || len(parts[1]) > 2 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// 拒绝 31.02.2024 之类被 time.Date 规范化的日期
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// ParseSheetDate 解析日期单元格（文本或序列日），不做年份范围检查
func ParseSheetDate(c workbook.Cell) (time.Time, bool) {
	switch c.Kind {
	case workbook.CellText:
		return ParseDateString(c.Text)
	case workbook.CellNumber, workbook.CellDateSerial:
		if c.Number <= 0 {
			return time.Time{}, false
		}
		return SerialToDate(c.Number), true
	default:
		return time.Time{}, false
	}
}

// FormatSheetDate 单元格 → DD.MM.YYYY
// 无法解析或年份不在 [2020, 2030] 时返回空字符串
func FormatSheetDate(c workbook.Cell) string {
	t, ok := ParseSheetDate(c)
	if !ok || t.Year() < minSheetYear || t.Year() > maxSheetYear {
		return ""
	}
	return t.Format(DateLayout)
}

// FormatDate time → DD.MM.YYYY
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// UTCMidnight 截断到 UTC 零点
func UTCMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SessionStatus 日期不晚于今天（UTC 零点比较）为 completed
func SessionStatus(date string, now time.Time) string {
	t, ok := ParseDateString(date)
	if !ok {
		return model.StatusOngoing
	}
	if !t.After(UTCMidnight(now)) {
		return model.StatusCompleted
	}
	return model.StatusOngoing
}

// ── 时间 ──

// ParseSheetTime 单元格 → HH:MM
// 接受 "14:00"、"9.30"、"14:00:00" 文本，或一天的小数（可带日期整数部分）。
// 无格式的整数按整点读取（14 → 14:00），超出 1-23 的整数无效。
func ParseSheetTime(c workbook.Cell) string {
	switch c.Kind {
	case workbook.CellText:
		return parseTimeString(c.Text)
	case workbook.CellNumber, workbook.CellDateSerial:
		if c.Number < 0 {
			return ""
		}
		frac := c.Number - math.Floor(c.Number)
		if frac == 0 {
			if c.Kind == workbook.CellNumber && c.Number >= 1 && c.Number <= 23 {
				return fmt.Sprintf("%02d:00", int(c.Number))
			}
			return ""
		}
		minutes := int(math.Round(frac * 24 * 60))
		if minutes >= 24*60 {
			minutes = 0
		}
		return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
	default:
		return ""
	}
}

func parseTimeString(s string) string {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "uhr"))
	s = strings.ReplaceAll(s, ".", ":")
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ""
	}
	h, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	m, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// minutesOf HH:MM → 分钟数
func minutesOf(hhmm string) (int, bool) {
	t := parseTimeString(hhmm)
	if t == "" {
		return 0, false
	}
	h, _ := strconv.Atoi(t[:2])
	m, _ := strconv.Atoi(t[3:])
	return h*60 + m, true
}

// SessionMinutes 起止时间跨度（分钟），跨午夜时加 24 小时
func SessionMinutes(start, end string) (int, bool) {
	s, ok1 := minutesOf(start)
	e, ok2 := minutesOf(end)
	if !ok1 || !ok2 {
		return 0, false
	}
	d := e - s
	if d < 0 {
		d += 24 * 60
	}
	return d, true
}

// IsLongSession 时长 ≥ 110 分钟
func IsLongSession(start, end string) bool {
	d, ok := SessionMinutes(start, end)
	return ok && d >= longSessionMinutes
}

// ── 计费课时 ──

// CalculateSessionDuration 按组别类型和授课方式查表得到计费课时
//
//	G/Online   1.5h；课程首节且实际时长 ≥110 分钟时 2.0h
//	G/Offline  2.5h
//	M/*        1.25h
//	其他       1.5h
func CalculateSessionDuration(groupClass, mode string, isFirst bool, start, end string) float64 {
	class := strings.ToUpper(strings.TrimSpace(groupClass))
	if class != "" {
		class = class[:1]
	}
	online := strings.EqualFold(strings.TrimSpace(mode), ModeOnline)

	switch {
	case class == "G" && online:
		if isFirst && IsLongSession(start, end) {
			return 2.0
		}
		return 1.5
	case class == "G":
		return 2.5
	case class == "M":
		return 1.25
	default:
		return 1.5
	}
}
