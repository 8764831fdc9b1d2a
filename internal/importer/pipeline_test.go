package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/workbook"
)

const testFilename = "G12_A1.1_Online.xlsx"

// ── 首次导入 ──

func TestPipeline_Import_CreatesCourse(t *testing.T) {
	p, repo := newTestPipeline(t)
	ctx := context.Background()

	res, err := p.Import(ctx, &Request{Filename: testFilename, Data: courseFixture().bytes(t)})
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}
	if !res.Created || res.SessionsCreated != 4 {
		t.Fatalf("期望新建课程且 4 个课次，实际 created=%v sessions=%d", res.Created, res.SessionsCreated)
	}
	if res.CourseName != "G12 A1.1" {
		t.Errorf("期望课程名 G12 A1.1，实际=%s", res.CourseName)
	}

	course, err := repo.Course.GetByID(ctx, res.CourseID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if course.Mode != ModeOnline || course.Level != "A1.1" {
		t.Errorf("期望 Online/A1.1，实际=%s/%s", course.Mode, course.Level)
	}
	if course.Status != model.StatusOngoing {
		t.Errorf("存在未排期课次，课程应为 ongoing，实际=%s", course.Status)
	}
	if course.StartDate != "06.03.2024" || course.EndDate != "20.03.2024" {
		t.Errorf("起止日期错误: %s - %s", course.StartDate, course.EndDate)
	}
	if len(course.SessionIDs) != 4 || len(course.StudentIDs) != 2 || len(course.TeacherIDs) != 1 {
		t.Errorf("期望 4 课次/2 学员/1 教师，实际 %d/%d/%d", len(course.SessionIDs), len(course.StudentIDs), len(course.TeacherIDs))
	}
	if course.WeekdayPattern == nil || len(course.WeekdayPattern.Weekdays) != 1 || course.WeekdayPattern.Weekdays[0] != "Wednesday" {
		t.Errorf("期望规律星期为 Wednesday，实际=%+v", course.WeekdayPattern)
	}

	sessions, err := repo.Session.ListByCourse(ctx, course.ID)
	if err != nil {
		t.Fatalf("ListByCourse 失败: %v", err)
	}
	if len(sessions) != 4 {
		t.Fatalf("期望 4 个课次，实际=%d", len(sessions))
	}

	first := sessions[0]
	if first.Title != "Lektion 1" || first.Duration != 2.0 {
		t.Errorf("首节 120 分钟应计 2.0h，实际 %s %.2f", first.Title, first.Duration)
	}
	if len(first.ContentItems) != 2 || first.Content != "Begrüßung\nAlphabet" {
		t.Errorf("续行内容应追加到首节，实际=%+v", first.ContentItems)
	}
	if first.MonthID != "2024-3" || first.Status != model.StatusCompleted {
		t.Errorf("期望 monthId=2024-3 且 completed，实际=%s %s", first.MonthID, first.Status)
	}
	if sessions[1].Duration != 1.5 {
		t.Errorf("非首节应计 1.5h，实际=%.2f", sessions[1].Duration)
	}
	last := sessions[3]
	if last.Date != "" || last.Status != model.StatusOngoing || last.MonthID != "" {
		t.Errorf("未排期课次应为 ongoing 且无日期，实际=%+v", last)
	}

	// 出勤
	students, _ := repo.Student.List(ctx)
	ids := map[string]string{}
	for _, st := range students {
		ids[st.Name] = st.ID
	}
	anna, peter := ids["Anna Nguyen"], ids["Peter Schmidt"]
	if e := first.Attendance[anna]; e.Status != model.AttendancePresent {
		t.Errorf("绿色单元格应为 present，实际=%+v", e)
	}
	if e := first.Attendance[peter]; e.Status != model.AttendanceSick || e.Comment != "krank" {
		t.Errorf("krank 应为 sick 且备注 krank，实际=%+v", e)
	}
	if e := sessions[1].Attendance[anna]; e.Status != model.AttendanceAbsent || e.Comment != "kam später" {
		t.Errorf("红色+批注应为 absent 且备注来自批注，实际=%+v", e)
	}

	// 入学日期取最早出勤
	for _, st := range students {
		if st.JoinDates[course.ID] != "06.03.2024" {
			t.Errorf("%s 的入学日期应为 06.03.2024，实际=%q", st.Name, st.JoinDates[course.ID])
		}
	}

	// 教师去重
	teachers, _ := repo.Teacher.List(ctx)
	if len(teachers) != 1 {
		t.Errorf("重音/大小写/空白不同的教师名应合并，实际 %d 个", len(teachers))
	}

	// 月度汇总
	month, err := repo.Month.GetByID(ctx, "2024-3")
	if err != nil {
		t.Fatalf("月度汇总应存在: %v", err)
	}
	if month.SessionCount != 3 || len(month.CourseIDs) != 1 || month.Name != "März 2024" {
		t.Errorf("月度汇总错误: %+v", month)
	}
}

// ── 增量合并 ──

func TestPipeline_Import_UnchangedReimportFails(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()
	data := courseFixture().bytes(t)

	if _, err := p.Import(ctx, &Request{Filename: testFilename, Data: data}); err != nil {
		t.Fatalf("首次导入应成功: %v", err)
	}
	_, err := p.Import(ctx, &Request{Filename: testFilename, Data: data})
	if !errors.Is(err, ErrMergeNoChanges) {
		t.Fatalf("期望 ErrMergeNoChanges，实际: %v", err)
	}
}

func TestPipeline_Import_MergeCompletesSession(t *testing.T) {
	p, repo := newTestPipeline(t)
	ctx := context.Background()

	first, err := p.Import(ctx, &Request{Filename: testFilename, Data: courseFixture().bytes(t)})
	if err != nil {
		t.Fatalf("首次导入应成功: %v", err)
	}

	revised := courseFixture()
	revised.rows[7] = []any{"Lektion 4", "Familie", "", "05.06.2024", "14:00", "15:30", "Maria Lopez"}
	res, err := p.Import(ctx, &Request{Filename: testFilename, Data: revised.bytes(t)})
	if err != nil {
		t.Fatalf("合并应成功: %v", err)
	}
	if !res.Merged || res.SessionsUpdated != 1 {
		t.Errorf("期望合并更新 1 个课次，实际 merged=%v updated=%d", res.Merged, res.SessionsUpdated)
	}
	if res.CourseID != first.CourseID {
		t.Error("合并不应新建课程")
	}

	sessions, _ := repo.Session.ListByCourse(ctx, first.CourseID)
	last := sessions[3]
	if last.Date != "05.06.2024" || last.StartTime != "14:00" || last.Status != model.StatusCompleted || last.MonthID != "2024-6" {
		t.Errorf("第 4 节应被补全，实际=%+v", last)
	}

	course, _ := repo.Course.GetByID(ctx, first.CourseID)
	if course.Status != model.StatusCompleted {
		t.Errorf("全部课次完成后课程应为 completed，实际=%s", course.Status)
	}
	if course.EndDate != "05.06.2024" {
		t.Errorf("结束日期应更新为 05.06.2024，实际=%s", course.EndDate)
	}
	month, err := repo.Month.GetByID(ctx, "2024-6")
	if err != nil || month.SessionCount != 1 {
		t.Errorf("六月汇总应计 1 个课次: %+v %v", month, err)
	}
}

func TestPipeline_Import_AttendanceOnlyReimport(t *testing.T) {
	p, repo := newTestPipeline(t)
	ctx := context.Background()

	first, err := p.Import(ctx, &Request{Filename: testFilename, Data: courseFixture().bytes(t)})
	if err != nil {
		t.Fatalf("首次导入应成功: %v", err)
	}

	revised := courseFixture()
	revised.fills["H4"] = testRed
	res, err := p.Import(ctx, &Request{Filename: testFilename, Data: revised.bytes(t)})
	if err != nil {
		t.Fatalf("只改出勤的重新导入应成功，实际: %v", err)
	}
	if !res.Merged || res.SessionsUpdated != 1 {
		t.Errorf("期望 1 个课次因出勤变化而更新，实际 merged=%v updated=%d", res.Merged, res.SessionsUpdated)
	}

	students, _ := repo.Student.List(ctx)
	annaID := ""
	for _, st := range students {
		if st.Name == "Anna Nguyen" {
			annaID = st.ID
		}
	}
	sessions, _ := repo.Session.ListByCourse(ctx, first.CourseID)
	if got := sessions[0].Attendance[annaID].Status; got != model.AttendanceAbsent {
		t.Errorf("Lektion 1 中 Anna 应改为 absent，实际=%s", got)
	}
	if joined := students[0].JoinDates[first.CourseID]; joined == "" {
		t.Error("合并完成后入学日期应保留")
	}
}

// ── 校验闸门 ──

func TestPipeline_Import_MissingTimeColumns(t *testing.T) {
	p, repo := newTestPipeline(t)
	ctx := context.Background()

	fx := sheetFixture{rows: [][]any{
		{"Folien", "Inhalt", "Notizen", "Datum", "Lehrer", "", "", "Anna Nguyen"},
		{"Lektion 1", "Begrüßung", "", "06.03.2024", "Maria Lopez"},
	}}
	data := fx.bytes(t)

	_, err := p.Import(ctx, &Request{Filename: testFilename, Data: data})
	var vErr *ValidationFailedError
	if !errors.As(err, &vErr) {
		t.Fatalf("期望 ValidationFailedError，实际: %v", err)
	}
	if !vErr.Overridable() {
		t.Errorf("只缺时间列时应可放行: %v", vErr.Result.Messages())
	}
	if courses, _ := repo.Course.List(ctx); len(courses) != 0 {
		t.Error("校验失败不应写入任何课程")
	}

	res, err := p.Import(ctx, &Request{Filename: testFilename, Data: data, AllowMissingTimes: true})
	if err != nil {
		t.Fatalf("人工放行后应成功: %v", err)
	}
	if !res.TimesOverridden || res.SessionsCreated != 1 {
		t.Errorf("期望放行导入 1 个课次，实际=%+v", res)
	}
}

func TestPipeline_Import_CompletedSessionWithoutTeacher(t *testing.T) {
	p, _ := newTestPipeline(t)

	fx := sheetFixture{rows: [][]any{
		standardHeader,
		{"Lektion 1", "Begrüßung", "", "06.03.2024", "14:00", "15:30", "Maria Lopez"},
		// 当月数据可以不完整，但已过去的课次必须有教师
		{"Lektion 2", "Zahlen", "", "03.06.2024", "14:00", "15:30", ""},
	}}
	_, err := p.Import(context.Background(), &Request{Filename: testFilename, Data: fx.bytes(t)})
	if !errors.Is(err, ErrSessionWithoutTeacher) {
		t.Fatalf("期望 ErrSessionWithoutTeacher，实际: %v", err)
	}
}

func TestPipeline_Import_StructuralErrors(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Import(ctx, &Request{Filename: testFilename, Data: []byte("not a workbook")})
	if !errors.Is(err, workbook.ErrUnreadable) {
		t.Errorf("期望 ErrUnreadable，实际: %v", err)
	}

	fx := sheetFixture{rows: [][]any{{"Titel", "Inhalt"}, {"Lektion 1"}}}
	_, err = p.Import(ctx, &Request{Filename: testFilename, Data: fx.bytes(t)})
	if !errors.Is(err, ErrHeaderNotFound) {
		t.Errorf("期望 ErrHeaderNotFound，实际: %v", err)
	}
}

func TestPipeline_Import_MetadataOverride(t *testing.T) {
	p, repo := newTestPipeline(t)
	ctx := context.Background()

	meta := &CourseMetadata{GroupName: "m3", Level: "B1.2", Mode: "offline", Language: "Deutsch", SourceURL: "https://example.com/sheet"}
	res, err := p.Import(ctx, &Request{Filename: "export.xlsx", Data: courseFixture().bytes(t), Metadata: meta})
	if err != nil {
		t.Fatalf("元数据导入应成功: %v", err)
	}
	course, _ := repo.Course.GetByID(ctx, res.CourseID)
	if course.Name != "M3 B1.2" || course.Mode != ModeOffline || course.Language != "Deutsch" {
		t.Errorf("元数据未生效: %+v", course)
	}
	sessions, _ := repo.Session.ListByCourse(ctx, res.CourseID)
	if sessions[0].Duration != 1.25 {
		t.Errorf("M 组课时应为 1.25h，实际=%.2f", sessions[0].Duration)
	}
}

func TestPipeline_Validate_DryRun(t *testing.T) {
	p, repo := newTestPipeline(t)

	vr, err := p.Validate(&Request{Filename: testFilename, Data: courseFixture().bytes(t)})
	if err != nil {
		t.Fatalf("Validate 应成功: %v", err)
	}
	if !vr.Valid() {
		t.Errorf("标准表格应通过校验: %v", vr.Messages())
	}
	if courses, _ := repo.Course.List(context.Background()); len(courses) != 0 {
		t.Error("预检不应写入数据")
	}
}
