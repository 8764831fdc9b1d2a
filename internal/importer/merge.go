package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/internal/model"
)

var ErrMergeNoChanges = errors.New("re-import changed nothing")

// mergeCourse 对已存在的课程做增量合并
//
// 以标题匹配已落库课次与表格候选；仅当候选完整且已有课次缺少
// 完成状态/教师/起止时间，或日期确实不同，才写入变化的字段。
// 已知日期的课次按该行重建出勤表，出勤有变化也计为更新。一条课次都没有更新视为失败。
// 表格中新增的标题不会创建课次，改名的课次也不会被识别。
func (p *Pipeline) mergeCourse(ctx context.Context, res *resolver, in *sheetInput, course *model.Course) (*Result, error) {
	candidates := in.readCandidates()

	roster, err := res.resolveRoster(ctx, ExtractRoster(in.sheet, in.headerRow, p.opts.RosterOffset), course.ID)
	if err != nil {
		return nil, err
	}

	sessions, err := p.repo.Session.ListByCourse(ctx, course.ID)
	if err != nil {
		return nil, fmt.Errorf("list sessions of %s: %w", course.Name, err)
	}

	earliest := map[string]time.Time{}
	updated := 0

	for i := range sessions {
		s := &sessions[i]
		cand, ok := candidates[s.Title]
		if !ok {
			continue
		}

		changed := false
		if cand.Complete() && needsUpdate(s, cand) {
			fields, err := p.sessionChanges(ctx, res, in, course.ID, s, cand)
			if err != nil {
				return nil, err
			}
			if len(fields) > 0 {
				if err := p.repo.Session.Update(ctx, s.ID, fields); err != nil {
					return nil, fmt.Errorf("update session %q: %w", s.Title, err)
				}
				applySessionChanges(s, fields)
				changed = true
				p.logger.Info("课次已更新", zap.String("course", course.Name), zap.String("title", s.Title), zap.Int("fields", len(fields)))
			}
		}

		date, ok := ParseDateString(s.Date)
		if !ok {
			if changed {
				updated++
			}
			continue
		}
		// 出勤有变化也算作更新，否则只改出勤的重新导入会被判为无变化
		attendance := in.readAttendance(cand.Row, roster)
		if !sameAttendance(attendance, s.Attendance) {
			if err := p.repo.Session.Update(ctx, s.ID, map[string]any{"attendance": attendance}); err != nil {
				return nil, fmt.Errorf("rewrite attendance of %q: %w", s.Title, err)
			}
			s.Attendance = attendance
			changed = true
			p.logger.Info("出勤已更新", zap.String("course", course.Name), zap.String("title", s.Title))
		}
		if changed {
			updated++
		}
		for studentID := range attendance {
			if e, ok := earliest[studentID]; !ok || date.Before(e) {
				earliest[studentID] = date
			}
		}
	}

	if updated == 0 {
		latest := "no dated session"
		if d, ok := latestSessionDate(sessions); ok {
			latest = "latest session " + FormatDate(d)
		}
		return nil, fmt.Errorf("%w: course %q is already up to date (%s)", ErrMergeNoChanges, course.Name, latest)
	}

	if err := res.flushJoinDates(ctx, course.ID, earliest); err != nil {
		return nil, err
	}

	ic := NewImportContext(course.ID)
	for i := range sessions {
		s := &sessions[i]
		date, _ := ParseDateString(s.Date)
		ic = ic.withSession(s, date)
	}

	studentIDs := course.StudentIDs
	for _, st := range roster {
		studentIDs, _ = model.AddUnique(studentIDs, st.StudentID)
	}
	teacherIDs := course.TeacherIDs
	for _, id := range ic.TeacherIDs {
		teacherIDs, _ = model.AddUnique(teacherIDs, id)
	}

	fields := courseSummary(ic, in.now)
	fields["studentIds"] = studentIDs
	fields["teacherIds"] = teacherIDs
	if err := p.repo.Course.Update(ctx, course.ID, fields); err != nil {
		return nil, fmt.Errorf("update course %s: %w", course.Name, err)
	}

	p.logger.Info("课程合并完成", zap.String("course", course.Name), zap.Int("updated", updated))
	return &Result{
		CourseID:        course.ID,
		CourseName:      course.Name,
		Merged:          true,
		SessionsUpdated: updated,
		StudentCount:    len(studentIDs),
		Status:          fields["status"].(string),
		Pattern:         fields["weekdayPattern"].(*model.WeekdayPattern),
	}, nil
}

// needsUpdate 已有课次缺少关键字段，或日期与表格不一致
func needsUpdate(s *model.Session, cand SessionCandidate) bool {
	return s.Status != model.StatusCompleted ||
		s.TeacherID == "" ||
		s.StartTime == "" ||
		s.EndTime == "" ||
		s.Date != cand.Date
}

// sessionChanges 计算最小更新集合；日期变化时迁移月度汇总
func (p *Pipeline) sessionChanges(ctx context.Context, res *resolver, in *sheetInput, courseID string, s *model.Session, cand SessionCandidate) (map[string]any, error) {
	fields := map[string]any{}

	teacherID, err := res.resolveTeacher(ctx, cand.Teacher, courseID)
	if err != nil {
		return nil, err
	}
	if teacherID != s.TeacherID {
		fields["teacherId"] = teacherID
	}
	if cand.Start != s.StartTime {
		fields["startTime"] = cand.Start
	}
	if cand.End != s.EndTime {
		fields["endTime"] = cand.End
	}
	if status := SessionStatus(cand.Date, in.now); status != s.Status {
		fields["status"] = status
	}
	duration := CalculateSessionDuration(in.info.GroupClass, in.info.Mode, s.SessionOrder == 0, cand.Start, cand.End)
	if duration != s.Duration {
		fields["duration"] = duration
	}

	if cand.Date != s.Date {
		fields["date"] = cand.Date
		if err := res.detachSession(ctx, s.MonthID); err != nil {
			return nil, err
		}
		monthID, err := res.attachSession(ctx, cand.date, courseID, teacherID)
		if err != nil {
			return nil, err
		}
		if monthID != s.MonthID {
			fields["monthId"] = monthID
		}
	}
	return fields, nil
}

func applySessionChanges(s *model.Session, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "teacherId":
			s.TeacherID = v.(string)
		case "startTime":
			s.StartTime = v.(string)
		case "endTime":
			s.EndTime = v.(string)
		case "status":
			s.Status = v.(string)
		case "duration":
			s.Duration = v.(float64)
		case "date":
			s.Date = v.(string)
		case "monthId":
			s.MonthID = v.(string)
		}
	}
}

func sameAttendance(a, b map[string]model.AttendanceEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func latestSessionDate(sessions []model.Session) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, s := range sessions {
		if d, ok := ParseDateString(s.Date); ok && (!found || d.After(latest)) {
			latest, found = d, true
		}
	}
	return latest, found
}
