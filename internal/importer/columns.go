package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BienNg/eduinsight-sub000/internal/workbook"
)

var ErrHeaderNotFound = errors.New("header row not found")

// 锚点：表头行第 0 列的字面值（德/英两种写法）
var anchorTokens = []string{"Folien", "Slides"}

// ── 逻辑列 ──

const (
	ColTitle   = "title"
	ColContent = "content"
	ColNotes   = "notes"
	ColDate    = "date"
	ColStart   = "startTime"
	ColEnd     = "endTime"
	ColTeacher = "teacher"
)

// logicalColumns 解析顺序即表头约定的列顺序
var logicalColumns = []string{ColTitle, ColContent, ColNotes, ColDate, ColStart, ColEnd, ColTeacher}

// columnNames 第一轮精确匹配使用的标准列名（不区分大小写）
var columnNames = map[string][]string{
	ColTitle:   {"Folien", "Slides"},
	ColContent: {"Inhalt", "Content"},
	ColNotes:   {"Notizen", "Notes"},
	ColDate:    {"Datum", "Date", "Tag"},
	ColStart:   {"von", "from", "start"},
	ColEnd:     {"bis", "to", "end"},
	ColTeacher: {"Lehrer", "Teacher", "Lehrerin"},
}

// columnVariations 第二轮子串匹配使用的变体表（小写）
// 日期列不在此表中：日期列只接受精确匹配
var columnVariations = map[string][]string{
	ColTitle:   {"folien", "canva", "slides", "folie"},
	ColContent: {"inhalt", "content", "thema", "topic"},
	ColNotes:   {"notiz", "note", "bemerkung", "anmerkung"},
	ColStart:   {"von", "beginn", "start", "from"},
	ColEnd:     {"bis", "ende", "end", "until"},
	ColTeacher: {"lehrer", "teacher", "dozent", "trainer"},
}

// LocateHeader 在前 maxRows 行内查找第 0 列等于锚点的行
func LocateHeader(sheet *workbook.Sheet, maxRows int) (int, error) {
	limit := min(maxRows, len(sheet.Rows))
	for r := 0; r < limit; r++ {
		v := sheet.Cell(r, 0)
		if v.Kind != workbook.CellText {
			continue
		}
		for _, token := range anchorTokens {
			if v.Text == token {
				return r, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: no %q cell in column A within the first %d rows", ErrHeaderNotFound, strings.Join(anchorTokens, "/"), maxRows)
}

// FindColumnIndex 在表头中查找逻辑列
//
//	日期列：仅精确（去空白）匹配
//	其他列：先不区分大小写精确匹配，再按变体表做子串匹配
//
// 未找到返回 -1
func FindColumnIndex(header []string, logical string) int {
	names := columnNames[logical]

	if logical == ColDate {
		for i, h := range header {
			h = strings.TrimSpace(h)
			for _, n := range names {
				if h == n {
					return i
				}
			}
		}
		return -1
	}

	for i, h := range header {
		h = strings.TrimSpace(h)
		for _, n := range names {
			if strings.EqualFold(h, n) {
				return i
			}
		}
	}

	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		for _, v := range columnVariations[logical] {
			if strings.Contains(h, v) {
				return i
			}
		}
	}
	return -1
}

// ColumnMap 逻辑列 → 物理列下标，缺失为 -1
type ColumnMap map[string]int

// Get 读取列下标
func (m ColumnMap) Get(logical string) int {
	if idx, ok := m[logical]; ok {
		return idx
	}
	return -1
}

// Has 列是否存在
func (m ColumnMap) Has(logical string) bool {
	return m.Get(logical) >= 0
}

// ResolveColumns 解析表头行的元数据列
// 只在花名册偏移之前的列中查找，避免把学员姓名误识别为元数据列
func ResolveColumns(sheet *workbook.Sheet, headerRow, rosterOffset int) ColumnMap {
	width := min(rosterOffset, sheet.Width)
	header := make([]string, width)
	for c := 0; c < width; c++ {
		header[c] = sheet.Cell(headerRow, c).String()
	}
	m := make(ColumnMap, len(logicalColumns))
	for _, logical := range logicalColumns {
		m[logical] = FindColumnIndex(header, logical)
	}
	return m
}
