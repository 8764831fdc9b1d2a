package workbook

import (
	"strconv"
	"strings"
)

// CellKind 单元格值的标签
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDateSerial // 带日期格式的数值（表格序列日）
)

// Cell 加载阶段一次性解析出的单元格值，下游只消费该变体
type Cell struct {
	Kind   CellKind
	Text   string  // CellText 的原文（已去除首尾空白）
	Number float64 // CellNumber / CellDateSerial
}

// TextCell 构造文本单元格，空白文本视为空
func TextCell(s string) Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell 构造数值单元格
func NumberCell(n float64) Cell {
	return Cell{Kind: CellNumber, Number: n}
}

// DateSerialCell 构造日期序列单元格
func DateSerialCell(n float64) Cell {
	return Cell{Kind: CellDateSerial, Number: n}
}

// IsEmpty 是否为空单元格
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// IsNumeric 数值或日期序列
func (c Cell) IsNumeric() bool {
	return c.Kind == CellNumber || c.Kind == CellDateSerial
}

// String 单元格的文本表示（数值按最短形式输出）
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber, CellDateSerial:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// CellFormat 单元格格式视图
type CellFormat struct {
	Fill  string       // 规范化填充色 RRGGBB（大写），无填充为空
	Note  string       // 批注文本
	Merge *MergeRegion // 所属合并区域，未合并为 nil
}

// MergeRegion 合并单元格区域（0 基行列，闭区间）
type MergeRegion struct {
	StartRow, StartCol int
	EndRow, EndCol     int
	Master             Cell // 左上角主单元格的值
}

// Contains 判断坐标是否落在区域内
func (m MergeRegion) Contains(row, col int) bool {
	return row >= m.StartRow && row <= m.EndRow && col >= m.StartCol && col <= m.EndCol
}

// NormalizeColor 统一颜色码：去掉 #，ARGB 去掉 alpha，转大写
//
//	"#00ff00" → "00FF00"；"FF00FF00" → "00FF00"
func NormalizeColor(raw string) string {
	c := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#")))
	if len(c) == 8 {
		c = c[2:]
	}
	if len(c) != 6 {
		return ""
	}
	for _, r := range c {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return ""
		}
	}
	return c
}
