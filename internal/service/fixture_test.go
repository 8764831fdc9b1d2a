package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/repository"
	"github.com/BienNg/eduinsight-sub000/pkg/database"
)

// ── 测试辅助 ──

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

// seededCourse 种子课程 G12 A1.1：两名学员、一名教师、三个课次
//
//	课次 1：Anna 出勤，Peter 病假
//	课次 2：Anna 缺勤（备注 "verschlafen"），Peter 出勤
//	课次 3：无日期无时间
type seededCourse struct {
	course   *model.Course
	group    *model.Group
	teacher  *model.Teacher
	anna     *model.Student
	peter    *model.Student
	sessions []*model.Session
}

func seedCourse(t *testing.T, repo *repository.Repository) *seededCourse {
	t.Helper()
	ctx := context.Background()
	sc := &seededCourse{}

	sc.group = &model.Group{Name: "G12"}
	mustDo(t, repo.Group.Create(ctx, sc.group))
	sc.teacher = &model.Teacher{Name: "Maria Lopez"}
	mustDo(t, repo.Teacher.Create(ctx, sc.teacher))
	sc.anna = &model.Student{Name: "Anna Nguyen", JoinDates: map[string]string{}}
	mustDo(t, repo.Student.Create(ctx, sc.anna))
	sc.peter = &model.Student{Name: "Peter Schmidt", JoinDates: map[string]string{}}
	mustDo(t, repo.Student.Create(ctx, sc.peter))

	sc.course = &model.Course{
		Name:       "G12 A1.1",
		Level:      "A1.1",
		GroupID:    sc.group.ID,
		Mode:       "Online",
		Status:     model.StatusOngoing,
		StartDate:  "06.03.2024",
		EndDate:    "13.03.2024",
		StudentIDs: []string{sc.anna.ID, sc.peter.ID},
		TeacherIDs: []string{sc.teacher.ID},
	}
	mustDo(t, repo.Course.Create(ctx, sc.course))

	specs := []model.Session{
		{
			Title: "Lektion 1", Date: "06.03.2024", StartTime: "14:00", EndTime: "16:00",
			TeacherID: sc.teacher.ID, Content: "Begrüßung\nAlphabet",
			ContentItems: []model.ContentItem{{Content: "Begrüßung"}, {Content: "Alphabet", Notes: "Hausaufgabe S. 4"}},
			Attendance: map[string]model.AttendanceEntry{
				sc.anna.ID:  {Status: model.AttendancePresent},
				sc.peter.ID: {Status: model.AttendanceSick, Comment: "krank"},
			},
			MonthID: "2024-3", Status: model.StatusCompleted,
		},
		{
			Title: "Lektion 2", Date: "13.03.2024", StartTime: "14:00", EndTime: "15:30",
			TeacherID: sc.teacher.ID, Content: "Zahlen",
			ContentItems: []model.ContentItem{{Content: "Zahlen"}},
			Attendance: map[string]model.AttendanceEntry{
				sc.anna.ID:  {Status: model.AttendanceAbsent, Comment: "verschlafen"},
				sc.peter.ID: {Status: model.AttendancePresent},
			},
			MonthID: "2024-3", Status: model.StatusCompleted,
		},
		{
			Title: "Lektion 3", Content: "Farben",
			ContentItems: []model.ContentItem{{Content: "Farben"}},
			Attendance:   map[string]model.AttendanceEntry{},
			Status:       model.StatusOngoing,
		},
	}
	for i := range specs {
		sess := specs[i]
		sess.CourseID = sc.course.ID
		sess.SessionOrder = i
		mustDo(t, repo.Session.Create(ctx, &sess))
		sc.sessions = append(sc.sessions, &sess)
		sc.course.SessionIDs = append(sc.course.SessionIDs, sess.ID)
	}
	mustDo(t, repo.Course.Update(ctx, sc.course.ID, map[string]any{"sessionIds": sc.course.SessionIDs}))
	mustDo(t, repo.Group.Update(ctx, sc.group.ID, map[string]any{"courseIds": []string{sc.course.ID}}))

	for _, st := range []*model.Student{sc.anna, sc.peter} {
		st.CourseIDs = []string{sc.course.ID}
		st.JoinDates = map[string]string{sc.course.ID: "06.03.2024"}
		mustDo(t, repo.Student.Update(ctx, st.ID, map[string]any{
			"courseIds": st.CourseIDs,
			"joinDates": st.JoinDates,
		}))
	}
	return sc
}

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("准备数据失败: %v", err)
	}
}

// sheetBytes 用给定行构造单工作表 xlsx；fills 为 单元格 → 颜色
func sheetBytes(t *testing.T, rows [][]any, fills map[string]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		axis, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow("Sheet1", axis, &r); err != nil {
			t.Fatalf("SetSheetRow 失败: %v", err)
		}
	}
	for cell, color := range fills {
		style, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}})
		if err != nil {
			t.Fatalf("NewStyle 失败: %v", err)
		}
		if err := f.SetCellStyle("Sheet1", cell, cell, style); err != nil {
			t.Fatalf("SetCellStyle 失败: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer 失败: %v", err)
	}
	return buf.Bytes()
}

// completeSheet 可直接导入的课程表
func completeSheet(t *testing.T) []byte {
	return sheetBytes(t, [][]any{
		{"Folien", "Inhalt", "Notizen", "Datum", "von", "bis", "Lehrer", "Anna Nguyen"},
		{"Lektion 1", "Begrüßung", "", "06.03.2024", "14:00", "16:00", "Maria Lopez"},
		{"Lektion 2", "Zahlen", "", "13.03.2024", "14:00", "15:30", "Maria Lopez"},
	}, map[string]string{"H2": "#00FF00", "H3": "#FF0000"})
}

// timelessSheet 缺少 von/bis 列，只会产生时间类校验错误
func timelessSheet(t *testing.T) []byte {
	return sheetBytes(t, [][]any{
		{"Folien", "Inhalt", "Notizen", "Datum", "Lehrer", "", "", "Anna Nguyen"},
		{"Lektion 1", "Begrüßung", "", "06.03.2024", "Maria Lopez"},
		{"Lektion 2", "Zahlen", "", "13.03.2024", "Maria Lopez"},
	}, map[string]string{"H2": "#00FF00"})
}
