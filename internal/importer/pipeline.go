package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/repository"
	"github.com/BienNg/eduinsight-sub000/internal/workbook"
)

// ── 导入流水线 ──────────────────────────────────────────────
//
// 读取 → 列解析 → 校验（闸门）→ 课程识别 →
//   新课程：花名册 → 分段 → 实体解析
//   已有课程：增量合并
// → 星期规律 → 课程汇总落库
// ─────────────────────────────────────────────────────────────

// Options 流水线参数
type Options struct {
	HeaderScanRows int
	RosterOffset   int
	ColorPolicy    ColorPolicy
	Now            func() time.Time
}

// DefaultOptions 默认参数：前 30 行找表头，学员从第 8 列开始
func DefaultOptions() Options {
	return Options{
		HeaderScanRows: 30,
		RosterOffset:   7,
		ColorPolicy:    DefaultColorPolicy(),
		Now:            time.Now,
	}
}

// Request 单个文件的导入请求
type Request struct {
	Filename          string
	Data              []byte
	Metadata          *CourseMetadata
	SheetIndex        int  // 无元数据时使用
	AllowMissingTimes bool // 仅缺时间列时以空白时间继续
}

func (r *Request) sheetIndex() int {
	if r.Metadata != nil {
		return r.Metadata.SheetIndex
	}
	return r.SheetIndex
}

// Result 导入结果摘要
type Result struct {
	CourseID        string                `json:"courseId"`
	CourseName      string                `json:"courseName"`
	Created         bool                  `json:"created"`
	Merged          bool                  `json:"merged"`
	SessionsCreated int                   `json:"sessionsCreated"`
	SessionsUpdated int                   `json:"sessionsUpdated"`
	StudentCount    int                   `json:"studentCount"`
	Status          string                `json:"status"`
	Pattern         *model.WeekdayPattern `json:"weekdayPattern,omitempty"`
	TimesOverridden bool                  `json:"timesOverridden"`
}

// Pipeline 表格导入流水线；同一时刻只应有一个 Import 在执行
type Pipeline struct {
	repo   *repository.Repository
	logger *zap.Logger
	opts   Options
}

// NewPipeline 创建流水线，未设置的参数取默认值
func NewPipeline(repo *repository.Repository, logger *zap.Logger, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.HeaderScanRows <= 0 {
		opts.HeaderScanRows = def.HeaderScanRows
	}
	if opts.RosterOffset <= 0 {
		opts.RosterOffset = def.RosterOffset
	}
	if opts.ColorPolicy == nil {
		opts.ColorPolicy = def.ColorPolicy
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &Pipeline{repo: repo, logger: logger, opts: opts}
}

// Validate 只读预检，不写入任何数据
func (p *Pipeline) Validate(req *Request) (*ValidationResult, error) {
	sheet, err := workbook.Load(req.Data, req.sheetIndex())
	if err != nil {
		return nil, err
	}
	return Validate(sheet, p.validateOptions()), nil
}

func (p *Pipeline) validateOptions() ValidateOptions {
	return ValidateOptions{
		HeaderScanRows: p.opts.HeaderScanRows,
		RosterOffset:   p.opts.RosterOffset,
		Now:            p.opts.Now(),
	}
}

// Import 执行完整导入
//
// 错误：
//   - workbook.ErrUnreadable / ErrHeaderNotFound：结构错误，未写入
//   - *ValidationFailedError：校验未通过，未写入
//   - ErrMissingGroup / ErrMissingLevel / ErrMissingMode：课程识别失败，未写入
//   - ErrSessionWithoutTeacher：处理中断，已写入的记录保留
//   - ErrMergeNoChanges：重复导入没有任何更新
func (p *Pipeline) Import(ctx context.Context, req *Request) (*Result, error) {
	log := p.logger.With(zap.String("file", req.Filename))

	sheet, err := workbook.Load(req.Data, req.sheetIndex())
	if err != nil {
		return nil, err
	}
	headerRow, err := LocateHeader(sheet, p.opts.HeaderScanRows)
	if err != nil {
		return nil, err
	}

	vopts := p.validateOptions()
	vr := Validate(sheet, vopts)
	overridden := false
	if !vr.Valid() {
		if !req.AllowMissingTimes || !vr.HasOnlyTimeErrors() {
			log.Warn("校验未通过", zap.Strings("errors", vr.Messages()))
			return nil, &ValidationFailedError{Result: vr}
		}
		overridden = true
		log.Warn("缺少时间列，按人工确认继续导入", zap.Strings("errors", vr.Messages()))
	}

	info, err := ExtractCourseInfo(req.Filename, sheet.Name, req.Metadata)
	if err != nil {
		return nil, err
	}

	in := &sheetInput{
		sheet:     sheet,
		headerRow: headerRow,
		cols:      ResolveColumns(sheet, headerRow, p.opts.RosterOffset),
		info:      info,
		now:       vopts.Now,
		policy:    p.opts.ColorPolicy,
	}
	res := newResolver(p.repo, log)

	existing, err := p.findCourse(ctx, info)
	if err != nil {
		return nil, err
	}

	var result *Result
	if existing != nil {
		log.Info("课程已存在，执行增量合并", zap.String("course", existing.Name), zap.String("id", existing.ID))
		result, err = p.mergeCourse(ctx, res, in, existing)
	} else {
		result, err = p.createCourse(ctx, res, in)
	}
	if err != nil {
		return nil, err
	}
	result.TimesOverridden = overridden
	return result, nil
}

// findCourse 按 (组, 级别) 查找已有课程
func (p *Pipeline) findCourse(ctx context.Context, info *CourseInfo) (*model.Course, error) {
	group, err := p.repo.Group.FindByName(ctx, info.Group)
	if err != nil {
		return nil, fmt.Errorf("find group %s: %w", info.Group, err)
	}
	if group == nil {
		return nil, nil
	}
	courses, err := p.repo.Course.ListByGroup(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("list courses of group %s: %w", info.Group, err)
	}
	for i := range courses {
		if strings.EqualFold(courses[i].Level, info.Level) {
			return &courses[i], nil
		}
	}
	return nil, nil
}

func (p *Pipeline) ensureGroup(ctx context.Context, name string) (*model.Group, error) {
	group, err := p.repo.Group.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find group %s: %w", name, err)
	}
	if group != nil {
		return group, nil
	}
	group = &model.Group{Name: name, CourseIDs: []string{}}
	if err := p.repo.Group.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("create group %s: %w", name, err)
	}
	return group, nil
}

// createCourse 首次导入：建课程 → 花名册 → 分段 → 汇总
func (p *Pipeline) createCourse(ctx context.Context, res *resolver, in *sheetInput) (*Result, error) {
	info := in.info
	group, err := p.ensureGroup(ctx, info.Group)
	if err != nil {
		return nil, err
	}

	course := &model.Course{
		Name:        info.CourseName(),
		Level:       info.Level,
		GroupID:     group.ID,
		Mode:        info.Mode,
		Language:    info.Language,
		Status:      model.StatusOngoing,
		SessionIDs:  []string{},
		StudentIDs:  []string{},
		TeacherIDs:  []string{},
		SourceURL:   info.SourceURL,
		SheetName:   info.SheetName,
		SheetIndex:  info.SheetIndex,
		LastUpdated: in.now,
	}
	if err := p.repo.Course.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("create course %s: %w", course.Name, err)
	}
	if ids, changed := model.AddUnique(group.CourseIDs, course.ID); changed {
		if err := p.repo.Group.Update(ctx, group.ID, map[string]any{"courseIds": ids}); err != nil {
			return nil, fmt.Errorf("link course to group %s: %w", group.Name, err)
		}
	}
	res.logger.Info("课程已创建", zap.String("course", course.Name), zap.String("id", course.ID))

	roster, err := res.resolveRoster(ctx, ExtractRoster(in.sheet, in.headerRow, p.opts.RosterOffset), course.ID)
	if err != nil {
		return nil, err
	}

	ic, err := p.segment(ctx, res, in, roster, NewImportContext(course.ID))
	if err != nil {
		res.logger.Error("分段中断，已写入的记录保留", zap.String("course", course.Name), zap.Int("sessions", ic.Sessions), zap.Error(err))
		return nil, err
	}

	if err := res.flushJoinDates(ctx, course.ID, ic.JoinDates); err != nil {
		return nil, err
	}

	studentIDs := make([]string, 0, len(roster))
	for _, st := range roster {
		studentIDs, _ = model.AddUnique(studentIDs, st.StudentID)
	}
	fields := courseSummary(ic, in.now)
	fields["sessionIds"] = ic.SessionIDs
	fields["studentIds"] = studentIDs
	fields["teacherIds"] = ic.TeacherIDs
	if err := p.repo.Course.Update(ctx, course.ID, fields); err != nil {
		return nil, fmt.Errorf("update course %s: %w", course.Name, err)
	}

	res.logger.Info("课次已落库", zap.String("course", course.Name), zap.Int("sessions", ic.Sessions), zap.Int("students", len(studentIDs)))
	return &Result{
		CourseID:        course.ID,
		CourseName:      course.Name,
		Created:         true,
		SessionsCreated: ic.Sessions,
		StudentCount:    len(studentIDs),
		Status:          fields["status"].(string),
		Pattern:         fields["weekdayPattern"].(*model.WeekdayPattern),
	}, nil
}

// courseSummary 课程级汇总字段：状态、起止日期、星期规律、更新时间
// 所有课次都有日期且已完成时课程为 completed
func courseSummary(ic ImportContext, now time.Time) map[string]any {
	status := model.StatusOngoing
	if ic.Sessions > 0 && ic.AllCompleted {
		status = model.StatusCompleted
	}

	startDate, endDate := "", ""
	for i, d := range ic.Dates {
		if i == 0 || d.Date.Before(mustParse(startDate)) {
			startDate = FormatDate(d.Date)
		}
		if i == 0 || d.Date.After(mustParse(endDate)) {
			endDate = FormatDate(d.Date)
		}
	}

	return map[string]any{
		"status":         status,
		"startDate":      startDate,
		"endDate":        endDate,
		"weekdayPattern": AnalyzeWeekdays(ic.Dates),
		"lastUpdated":    now,
	}
}

func mustParse(date string) time.Time {
	t, _ := ParseDateString(date)
	return t
}
