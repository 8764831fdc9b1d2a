package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnreadable    = errors.New("spreadsheet could not be read")
	ErrSheetNotFound = errors.New("worksheet not found")
)

// Sheet 单个工作表的值网格与格式视图，二者使用同一套 0 基物理坐标
type Sheet struct {
	Name    string
	Index   int
	Rows    [][]Cell
	Width   int
	formats map[[2]int]CellFormat
	merges  []MergeRegion
}

// Cell 读取单元格，越界返回空单元格
func (s *Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return Cell{}
	}
	return s.Rows[row][col]
}

// Format 读取单元格格式
func (s *Sheet) Format(row, col int) CellFormat {
	return s.formats[[2]int{row, col}]
}

// MasterValue 单元格为空且属于合并区域时返回主单元格的值
func (s *Sheet) MasterValue(row, col int) Cell {
	if c := s.Cell(row, col); !c.IsEmpty() {
		return c
	}
	for _, m := range s.merges {
		if m.Contains(row, col) {
			return m.Master
		}
	}
	return Cell{}
}

// Merges 工作表中的全部合并区域
func (s *Sheet) Merges() []MergeRegion {
	return s.merges
}

// Load 解析表格字节流，读取第 sheetIndex 个工作表（0 基）
func Load(data []byte, sheetIndex int) (*Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if sheetIndex < 0 || sheetIndex >= len(sheets) {
		return nil, fmt.Errorf("%w: index %d (workbook has %d sheets)", ErrSheetNotFound, sheetIndex, len(sheets))
	}
	return readSheet(f, sheets[sheetIndex], sheetIndex)
}

// SheetNames 返回工作簿中的工作表名称
func SheetNames(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer func() { _ = f.Close() }()
	return f.GetSheetList(), nil
}

func readSheet(f *excelize.File, name string, index int) (*Sheet, error) {
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read rows of %q: %v", ErrUnreadable, name, err)
	}

	sheet := &Sheet{Name: name, Index: index, formats: map[[2]int]CellFormat{}}
	for _, r := range raw {
		if len(r) > sheet.Width {
			sheet.Width = len(r)
		}
	}

	styles := newStyleCache(f)

	// 1. 值网格 + 填充色（GetRows 会截掉行尾空值，格式需按完整宽度读取）
	sheet.Rows = make([][]Cell, len(raw))
	for r := range raw {
		cells := make([]Cell, sheet.Width)
		for c := 0; c < sheet.Width; c++ {
			axis, _ := excelize.CoordinatesToCellName(c+1, r+1)
			styleID, _ := f.GetCellStyle(name, axis)
			st := styles.get(styleID)

			var value string
			if c < len(raw[r]) {
				value = raw[r][c]
			}
			cells[c] = toCell(value, st.isDate)

			if st.fill != "" {
				sheet.formats[[2]int{r, c}] = CellFormat{Fill: st.fill}
			}
		}
		sheet.Rows[r] = cells
	}

	// 2. 批注
	comments, err := f.GetComments(name)
	if err == nil {
		for _, cm := range comments {
			col, row, err := excelize.CellNameToCoordinates(cm.Cell)
			if err != nil {
				continue
			}
			key := [2]int{row - 1, col - 1}
			cf := sheet.formats[key]
			cf.Note = commentText(cm)
			sheet.formats[key] = cf
		}
	}

	// 3. 合并区域
	merged, err := f.GetMergeCells(name)
	if err == nil {
		for _, mc := range merged {
			sc, sr, err1 := excelize.CellNameToCoordinates(mc.GetStartAxis())
			ec, er, err2 := excelize.CellNameToCoordinates(mc.GetEndAxis())
			if err1 != nil || err2 != nil {
				continue
			}
			region := MergeRegion{StartRow: sr - 1, StartCol: sc - 1, EndRow: er - 1, EndCol: ec - 1}
			region.Master = sheet.Cell(region.StartRow, region.StartCol)
			if region.Master.IsEmpty() {
				region.Master = TextCell(mc.GetCellValue())
			}
			sheet.merges = append(sheet.merges, region)
			for rr := region.StartRow; rr <= region.EndRow; rr++ {
				for cc := region.StartCol; cc <= region.EndCol; cc++ {
					key := [2]int{rr, cc}
					cf := sheet.formats[key]
					cf.Merge = &sheet.merges[len(sheet.merges)-1]
					sheet.formats[key] = cf
				}
			}
		}
		// append 可能导致底层数组搬迁，重新绑定指针
		for i := range sheet.merges {
			m := &sheet.merges[i]
			for rr := m.StartRow; rr <= m.EndRow; rr++ {
				for cc := m.StartCol; cc <= m.EndCol; cc++ {
					key := [2]int{rr, cc}
					cf := sheet.formats[key]
					cf.Merge = m
					sheet.formats[key] = cf
				}
			}
		}
	}

	return sheet, nil
}

func toCell(value string, isDate bool) Cell {
	v := strings.TrimSpace(value)
	if v == "" {
		return Cell{}
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil && !strings.ContainsAny(v, "eE") {
		if isDate {
			return DateSerialCell(n)
		}
		return NumberCell(n)
	}
	return TextCell(v)
}

func commentText(cm excelize.Comment) string {
	text := cm.Text
	if text == "" {
		var sb strings.Builder
		for _, run := range cm.Paragraph {
			sb.WriteString(run.Text)
		}
		text = sb.String()
	}
	text = strings.TrimSpace(text)
	// 某些客户端会把作者名作为首个 run 写入
	if cm.Author != "" {
		text = strings.TrimSpace(strings.TrimPrefix(text, cm.Author+":"))
	}
	return text
}

// ── 样式缓存 ──

type styleInfo struct {
	fill   string
	isDate bool
}

type styleCache struct {
	f     *excelize.File
	cache map[int]styleInfo
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, cache: map[int]styleInfo{}}
}

func (c *styleCache) get(id int) styleInfo {
	if info, ok := c.cache[id]; ok {
		return info
	}
	var info styleInfo
	if st, err := c.f.GetStyle(id); err == nil && st != nil {
		if st.Fill.Type == "pattern" && st.Fill.Pattern > 0 && len(st.Fill.Color) > 0 {
			info.fill = NormalizeColor(st.Fill.Color[0])
		}
		info.isDate = isDateFormat(st.NumFmt, st.CustomNumFmt)
	}
	c.cache[id] = info
	return info
}

// isDateFormat 内置日期格式 ID 或含日/年占位符的自定义格式
func isDateFormat(numFmt int, custom *string) bool {
	switch {
	case numFmt >= 14 && numFmt <= 17, numFmt == 22, numFmt >= 27 && numFmt <= 36, numFmt >= 50 && numFmt <= 58:
		return true
	}
	if custom != nil {
		lower := strings.ToLower(*custom)
		return strings.Contains(lower, "yy") || strings.Contains(lower, "dd")
	}
	return false
}
