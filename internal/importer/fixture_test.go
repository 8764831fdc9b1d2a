package importer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/repository"
	"github.com/BienNg/eduinsight-sub000/internal/workbook"
	"github.com/BienNg/eduinsight-sub000/pkg/database"
)

// ── 测试辅助 ──

// 所有测试使用固定的“今天”
var testNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

const (
	testGreen = "#00FF00"
	testRed   = "#FF0000"
)

var standardHeader = []any{"Folien", "Inhalt", "Notizen", "Datum", "von", "bis", "Lehrer", "Anna Nguyen", "Peter Schmidt", "Summe"}

// sheetFixture 内存中构造的课程表格
type sheetFixture struct {
	name   string
	rows   [][]any
	fills  map[string]string // 单元格 → 颜色
	notes  map[string]string // 单元格 → 批注
	dates  []string          // 需要日期格式的单元格
	merges [][2]string
}

func (f sheetFixture) bytes(t *testing.T) []byte {
	t.Helper()
	x := excelize.NewFile()
	defer x.Close()

	name := f.name
	if name == "" {
		name = "Kurs"
	}
	if err := x.SetSheetName("Sheet1", name); err != nil {
		t.Fatalf("SetSheetName 失败: %v", err)
	}
	for i, row := range f.rows {
		axis, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := x.SetSheetRow(name, axis, &r); err != nil {
			t.Fatalf("SetSheetRow 失败: %v", err)
		}
	}
	for cell, color := range f.fills {
		style, err := x.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}})
		if err != nil {
			t.Fatalf("NewStyle 失败: %v", err)
		}
		if err := x.SetCellStyle(name, cell, cell, style); err != nil {
			t.Fatalf("SetCellStyle 失败: %v", err)
		}
	}
	if len(f.dates) > 0 {
		style, err := x.NewStyle(&excelize.Style{NumFmt: 14})
		if err != nil {
			t.Fatalf("NewStyle 失败: %v", err)
		}
		for _, cell := range f.dates {
			if err := x.SetCellStyle(name, cell, cell, style); err != nil {
				t.Fatalf("SetCellStyle 失败: %v", err)
			}
		}
	}
	for cell, text := range f.notes {
		err := x.AddComment(name, excelize.Comment{
			Cell:      cell,
			Author:    "Lehrer",
			Paragraph: []excelize.RichTextRun{{Text: text}},
		})
		if err != nil {
			t.Fatalf("AddComment 失败: %v", err)
		}
	}
	for _, m := range f.merges {
		if err := x.MergeCell(name, m[0], m[1]); err != nil {
			t.Fatalf("MergeCell 失败: %v", err)
		}
	}

	buf, err := x.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer 失败: %v", err)
	}
	return buf.Bytes()
}

func (f sheetFixture) sheet(t *testing.T) *workbook.Sheet {
	t.Helper()
	s, err := workbook.Load(f.bytes(t), 0)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	return s
}

// courseFixture 标准课程表：三节已完成课次（三月的周三）+ 一节未排期课次
//
//	H4 绿色；I4 "krank"；H6 红色 + 批注；I6、H7、I7 绿色
func courseFixture() sheetFixture {
	return sheetFixture{
		rows: [][]any{
			{"G12 A1.1 Online"},
			{},
			standardHeader,
			{"Lektion 1", "Begrüßung", "", "06.03.2024", "14:00", "16:00", "Maria Lopez", "", "krank"},
			{"", "Alphabet", "Hausaufgabe S. 4"},
			{"Lektion 2", "Zahlen", "", "13.03.2024", "14:00", "15:30", "María  López"},
			{"Lektion 3", "Farben", "", "20.03.2024", "14:00", "15:30", "maria lopez"},
			{"Lektion 4", "Familie"},
		},
		fills: map[string]string{
			"H4": testGreen,
			"H6": testRed,
			"I6": testGreen,
			"H7": testGreen,
			"I7": testGreen,
		},
		notes: map[string]string{"H6": "kam später"},
	}
}

func newTestRepo(t *testing.T) *repository.Repository {
	t.Helper()
	db, err := database.OpenBolt(filepath.Join(t.TempDir(), "school.db"), model.Collections, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenBolt 失败: %v", err)
	}
	store := repository.NewBoltStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return repository.NewRepository(store)
}

func newTestPipeline(t *testing.T) (*Pipeline, *repository.Repository) {
	t.Helper()
	repo := newTestRepo(t)
	opts := DefaultOptions()
	opts.Now = func() time.Time { return testNow }
	return NewPipeline(repo, zap.NewNop(), opts), repo
}
