package importer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BienNg/eduinsight-sub000/internal/workbook"
)

// ValidationKind 校验错误类别
type ValidationKind string

const (
	KindStructure  ValidationKind = "structure"   // 表头缺失
	KindColumn     ValidationKind = "column"      // 必需列缺失
	KindTimeColumn ValidationKind = "time_column" // 起止时间列缺失
	KindTitle      ValidationKind = "title"       // 课次行标题为空
	KindRoster     ValidationKind = "roster"      // 未找到学员
	KindDate       ValidationKind = "date"        // 日期格式或年份错误
	KindTime       ValidationKind = "time"        // 已完成课次缺少起止时间
	KindTeacher    ValidationKind = "teacher"     // 已完成课次缺少教师
)

// ValidationError 单条校验错误
type ValidationError struct {
	Kind    ValidationKind `json:"kind"`
	Row     int            `json:"row,omitempty"` // 1 基行号，0 表示不针对具体行
	Message string         `json:"message"`
}

// IsTimeError 是否属于可人工放行的时间类错误
func (e ValidationError) IsTimeError() bool {
	return e.Kind == KindTimeColumn || e.Kind == KindTime
}

// ValidationResult 预检结果
type ValidationResult struct {
	Errors             []ValidationError
	MissingTimeColumns bool
}

// Valid 无任何错误
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// HasOnlyTimeErrors 缺少时间列，且其余错误全部是时间类错误
func (r *ValidationResult) HasOnlyTimeErrors() bool {
	if !r.MissingTimeColumns {
		return false
	}
	for _, e := range r.Errors {
		if !e.IsTimeError() {
			return false
		}
	}
	return true
}

// Messages 按出现顺序返回错误文本
func (r *ValidationResult) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Message)
	}
	return out
}

// MarshalJSON 对外结构：{errors, missingTimeColumns, hasOnlyTimeErrors, details}
func (r *ValidationResult) MarshalJSON() ([]byte, error) {
	details := r.Errors
	if details == nil {
		details = []ValidationError{}
	}
	return json.Marshal(struct {
		Errors             []string          `json:"errors"`
		MissingTimeColumns bool              `json:"missingTimeColumns"`
		HasOnlyTimeErrors  bool              `json:"hasOnlyTimeErrors"`
		Details            []ValidationError `json:"details"`
	}{r.Messages(), r.MissingTimeColumns, r.HasOnlyTimeErrors(), details})
}

func (r *ValidationResult) add(kind ValidationKind, row int, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Kind: kind, Row: row, Message: fmt.Sprintf(format, args...)})
}

// ValidationFailedError 校验未通过，携带完整结果
type ValidationFailedError struct {
	Result *ValidationResult
}

func (e *ValidationFailedError) Error() string {
	return "validation failed: " + strings.Join(e.Result.Messages(), "; ")
}

// Overridable 仅时间类错误，可由人工确认后以空白时间继续
func (e *ValidationFailedError) Overridable() bool {
	return e.Result.HasOnlyTimeErrors()
}

// ValidateOptions 校验参数
type ValidateOptions struct {
	HeaderScanRows int
	RosterOffset   int
	Now            time.Time
}

// Validate 在创建任何实体之前对工作表做结构与业务规则检查
func Validate(sheet *workbook.Sheet, opts ValidateOptions) *ValidationResult {
	res := &ValidationResult{}

	// 1. 表头
	headerRow, err := LocateHeader(sheet, opts.HeaderScanRows)
	if err != nil {
		res.add(KindStructure, 0, "Header row not found: no \"Folien\" or \"Slides\" cell in column A within the first %d rows", opts.HeaderScanRows)
		return res
	}
	cols := ResolveColumns(sheet, headerRow, opts.RosterOffset)

	// 2. 必需列
	required := []struct {
		col, label string
	}{
		{ColTitle, "Folien (title)"},
		{ColDate, "Datum (date)"},
		{ColTeacher, "Lehrer (teacher)"},
	}
	for _, rc := range required {
		if !cols.Has(rc.col) {
			res.add(KindColumn, headerRow+1, "Required column %q not found in header row %d", rc.label, headerRow+1)
		}
	}

	// 3. 时间列
	if !cols.Has(ColStart) {
		res.MissingTimeColumns = true
		res.add(KindTimeColumn, headerRow+1, "Start time column \"von\" not found in header row %d", headerRow+1)
	}
	if !cols.Has(ColEnd) {
		res.MissingTimeColumns = true
		res.add(KindTimeColumn, headerRow+1, "End time column \"bis\" not found in header row %d", headerRow+1)
	}

	// 4. 花名册
	if len(ExtractRoster(sheet, headerRow, opts.RosterOffset)) == 0 {
		res.add(KindRoster, headerRow+1, "No student names found in header row %d from column %d onwards", headerRow+1, opts.RosterOffset+1)
	}

	// 5. 逐行检查
	if cols.Has(ColDate) {
		validateRows(sheet, headerRow, cols, opts.Now, res)
	}
	return res
}

func validateRows(sheet *workbook.Sheet, headerRow int, cols ColumnMap, now time.Time, res *ValidationResult) {
	today := UTCMidnight(now)
	dateCol := cols.Get(ColDate)

	for r := headerRow + 1; r < len(sheet.Rows); r++ {
		line := r + 1
		dateCell := sheet.Cell(r, dateCol)
		if dateCell.IsEmpty() {
			continue
		}

		// 有日期的行视为课次行：标题不能为空（合并单元格取主单元格值）
		title := ""
		if cols.Has(ColTitle) {
			title = sheet.MasterValue(r, cols.Get(ColTitle)).String()
			if title == "" {
				res.add(KindTitle, line, "Row %d: session row has an empty \"Folien\" cell", line)
			}
		}
		label := title
		if label == "" {
			label = fmt.Sprintf("row %d", line)
		}

		date, ok := ParseSheetDate(dateCell)
		if !ok {
			res.add(KindDate, line, "Row %d (%s): invalid date %q, expected DD.MM.YYYY", line, label, dateCell.String())
			continue
		}
		if date.Year() < minSheetYear {
			res.add(KindDate, line, "Row %d (%s): date %s is before %d", line, label, FormatDate(date), minSheetYear)
			continue
		}

		// 当月数据允许不完整；未来课次无需检查
		if date.Year() == today.Year() && date.Month() == today.Month() {
			continue
		}
		if date.After(today) {
			continue
		}

		if cols.Has(ColStart) && ParseSheetTime(sheet.Cell(r, cols.Get(ColStart))) == "" {
			res.add(KindTime, line, "Row %d (%s): completed session on %s has no start time", line, label, FormatDate(date))
		}
		if cols.Has(ColEnd) && ParseSheetTime(sheet.Cell(r, cols.Get(ColEnd))) == "" {
			res.add(KindTime, line, "Row %d (%s): completed session on %s has no end time", line, label, FormatDate(date))
		}
		if cols.Has(ColTeacher) && sheet.Cell(r, cols.Get(ColTeacher)).String() == "" {
			res.add(KindTeacher, line, "Row %d (%s): completed session on %s has no teacher", line, label, FormatDate(date))
		}
	}
}
