package importer

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/workbook"
)

var ErrSessionWithoutTeacher = errors.New("completed session has no teacher")

// ═══════════════════════════════════════════════════════════
// ImportContext
// ═══════════════════════════════════════════════════════════

// ImportContext 分段过程的累积结果
//
// 每一步通过 with* 返回新值，不修改原值；调用方在整轮结束后统一落库。
type ImportContext struct {
	CourseID     string
	SessionIDs   []string
	TeacherIDs   []string
	MonthIDs     []string
	Dates        []SessionDate
	JoinDates    map[string]time.Time // studentID → 本课程最早出勤日期
	AllCompleted bool
	Sessions     int
}

// NewImportContext 创建空上下文
func NewImportContext(courseID string) ImportContext {
	return ImportContext{CourseID: courseID, JoinDates: map[string]time.Time{}, AllCompleted: true}
}

func (c ImportContext) withSession(s *model.Session, date time.Time) ImportContext {
	next := c
	next.SessionIDs = append(slices.Clone(c.SessionIDs), s.ID)
	next.TeacherIDs, _ = model.AddUnique(slices.Clone(c.TeacherIDs), s.TeacherID)
	next.MonthIDs, _ = model.AddUnique(slices.Clone(c.MonthIDs), s.MonthID)
	if s.Date != "" {
		next.Dates = append(slices.Clone(c.Dates), SessionDate{Title: s.Title, Date: date})
	}
	next.AllCompleted = c.AllCompleted && s.Date != "" && s.Status == model.StatusCompleted
	next.Sessions = c.Sessions + 1
	return next
}

func (c ImportContext) withJoinDate(studentID string, date time.Time) ImportContext {
	if existing, ok := c.JoinDates[studentID]; ok && !date.Before(existing) {
		return c
	}
	next := c
	next.JoinDates = maps.Clone(c.JoinDates)
	if next.JoinDates == nil {
		next.JoinDates = map[string]time.Time{}
	}
	next.JoinDates[studentID] = date
	return next
}

// ═══════════════════════════════════════════════════════════
// 行读取
// ═══════════════════════════════════════════════════════════

// SessionCandidate 从单行读出的课次描述，不触及存储
type SessionCandidate struct {
	Row     int // 0 基物理行
	Title   string
	Date    string // DD.MM.YYYY；未知、越界或未来为空
	Start   string
	End     string
	Teacher string
	Content string
	Notes   string
	Future  bool

	date time.Time
}

// Complete 日期、起止时间、教师齐全
func (c SessionCandidate) Complete() bool {
	return c.Date != "" && c.Start != "" && c.End != "" && c.Teacher != ""
}

// sheetInput 一次导入共享的只读输入
type sheetInput struct {
	sheet     *workbook.Sheet
	headerRow int
	cols      ColumnMap
	info      *CourseInfo
	now       time.Time
	policy    ColorPolicy
}

func (in *sheetInput) text(row int, logical string) string {
	if !in.cols.Has(logical) {
		return ""
	}
	return strings.TrimSpace(in.sheet.Cell(row, in.cols.Get(logical)).String())
}

func (in *sheetInput) readCandidate(row int) SessionCandidate {
	c := SessionCandidate{
		Row:     row,
		Title:   in.text(row, ColTitle),
		Teacher: in.text(row, ColTeacher),
		Content: in.text(row, ColContent),
		Notes:   in.text(row, ColNotes),
	}
	if in.cols.Has(ColStart) {
		c.Start = ParseSheetTime(in.sheet.Cell(row, in.cols.Get(ColStart)))
	}
	if in.cols.Has(ColEnd) {
		c.End = ParseSheetTime(in.sheet.Cell(row, in.cols.Get(ColEnd)))
	}
	if in.cols.Has(ColDate) {
		cell := in.sheet.Cell(row, in.cols.Get(ColDate))
		if formatted := FormatSheetDate(cell); formatted != "" {
			c.date, _ = ParseDateString(formatted)
			c.Date = formatted
		}
	}
	// 未来课次：日期、时间清空
	if c.Date != "" && c.date.After(UTCMidnight(in.now)) {
		c.Future = true
		c.Date, c.Start, c.End = "", "", ""
		c.date = time.Time{}
	}
	return c
}

// readCandidates 每个不同标题取其首行
func (in *sheetInput) readCandidates() map[string]SessionCandidate {
	out := map[string]SessionCandidate{}
	for r := in.headerRow + 1; r < len(in.sheet.Rows); r++ {
		c := in.readCandidate(r)
		if c.Title == "" {
			continue
		}
		if _, seen := out[c.Title]; !seen {
			out[c.Title] = c
		}
	}
	return out
}

// readAttendance 读取某行全部花名册列的出勤
func (in *sheetInput) readAttendance(row int, roster []rosterStudent) map[string]model.AttendanceEntry {
	out := map[string]model.AttendanceEntry{}
	for _, st := range roster {
		entry := DecodeAttendance(in.sheet.Cell(row, st.Column), in.sheet.Format(row, st.Column), in.policy)
		if Recordable(entry) {
			out[st.StudentID] = entry
		}
	}
	return out
}

// ═══════════════════════════════════════════════════════════
// 分段
// ═══════════════════════════════════════════════════════════

type openSession struct {
	SessionCandidate
	items      []model.ContentItem
	attendance map[string]model.AttendanceEntry
}

// segment 逐行扫描数据区，标题变化即关闭并落库上一个课次
//
// 标题为空但内容非空的行是续行，内容追加到当前课次。
// 已出现过的标题再次出现时忽略该行。
func (p *Pipeline) segment(ctx context.Context, res *resolver, in *sheetInput, roster []rosterStudent, ic ImportContext) (ImportContext, error) {
	var open *openSession
	seen := map[string]bool{}

	closeOpen := func() error {
		if open == nil {
			return nil
		}
		next, err := p.persistSession(ctx, res, in, ic, open)
		if err != nil {
			return err
		}
		ic = next
		open = nil
		return nil
	}

	for r := in.headerRow + 1; r < len(in.sheet.Rows); r++ {
		c := in.readCandidate(r)

		switch {
		case c.Title != "" && (open == nil || c.Title != open.Title):
			if err := closeOpen(); err != nil {
				return ic, err
			}
			if seen[c.Title] {
				p.logger.Warn("重复的课次标题，已忽略", zap.String("title", c.Title), zap.Int("row", r+1))
				continue
			}
			seen[c.Title] = true
			open = &openSession{
				SessionCandidate: c,
				attendance:       in.readAttendance(r, roster),
			}
			if c.Content != "" || c.Notes != "" {
				open.items = append(open.items, model.ContentItem{Content: c.Content, Notes: c.Notes})
			}

		case open != nil && (c.Content != "" || c.Notes != ""):
			open.items = append(open.items, model.ContentItem{Content: c.Content, Notes: c.Notes})
		}
	}

	if err := closeOpen(); err != nil {
		return ic, err
	}
	return ic, nil
}

// persistSession 计算状态与课时，解析教师与月份，写入课次
func (p *Pipeline) persistSession(ctx context.Context, res *resolver, in *sheetInput, ic ImportContext, open *openSession) (ImportContext, error) {
	status := model.StatusOngoing
	if open.Date != "" {
		status = SessionStatus(open.Date, in.now)
	}
	if status == model.StatusCompleted && open.Teacher == "" {
		return ic, fmt.Errorf("%w: session %q on %s (row %d)", ErrSessionWithoutTeacher, open.Title, open.Date, open.Row+1)
	}

	teacherID, err := res.resolveTeacher(ctx, open.Teacher, ic.CourseID)
	if err != nil {
		return ic, err
	}

	session := &model.Session{
		CourseID:     ic.CourseID,
		Title:        open.Title,
		Date:         open.Date,
		StartTime:    open.Start,
		EndTime:      open.End,
		TeacherID:    teacherID,
		Content:      joinContent(open.items),
		ContentItems: open.items,
		Attendance:   open.attendance,
		SessionOrder: ic.Sessions,
		Duration:     CalculateSessionDuration(in.info.GroupClass, in.info.Mode, ic.Sessions == 0, open.Start, open.End),
		Status:       status,
	}
	if session.ContentItems == nil {
		session.ContentItems = []model.ContentItem{}
	}

	if open.Date != "" {
		monthID, err := res.attachSession(ctx, open.date, ic.CourseID, teacherID)
		if err != nil {
			return ic, err
		}
		session.MonthID = monthID
	}

	if err := p.repo.Session.Create(ctx, session); err != nil {
		return ic, fmt.Errorf("create session %q: %w", open.Title, err)
	}

	next := ic.withSession(session, open.date)
	if open.Date != "" {
		for studentID := range open.attendance {
			next = next.withJoinDate(studentID, open.date)
		}
	}
	return next, nil
}

func joinContent(items []model.ContentItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it.Content != "" {
			parts = append(parts, it.Content)
		}
	}
	return strings.Join(parts, "\n")
}
