package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/internal/importer"
)

// ── 导入队列业务错误 ──

var (
	ErrJobNotFound        = errors.New("import job not found")
	ErrNoPendingDecision  = errors.New("no import is waiting for a decision")
	ErrEmptyUpload        = errors.New("uploaded file is empty")
	ErrQueueNotRunning    = errors.New("import queue is not running")
	ErrQueueAlreadyActive = errors.New("import queue is already running")
)

// QueueState 队列状态机
type QueueState string

const (
	QueueIdle             QueueState = "idle"
	QueueProcessing       QueueState = "processing"
	QueueAwaitingDecision QueueState = "awaiting_decision"
)

// JobStatus 导入任务状态
type JobStatus string

const (
	JobQueued           JobStatus = "queued"
	JobProcessing       JobStatus = "processing"
	JobAwaitingDecision JobStatus = "awaiting_decision"
	JobCompleted        JobStatus = "completed"
	JobFailed           JobStatus = "failed"
	JobCancelled        JobStatus = "cancelled"
)

// Terminal 任务已结束
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// ImportJob 一个文件的导入任务
type ImportJob struct {
	ID         string                     `json:"id"`
	Filename   string                     `json:"filename"`
	Status     JobStatus                  `json:"status"`
	Validation *importer.ValidationResult `json:"validation,omitempty"`
	Result     *importer.Result           `json:"result,omitempty"`
	Error      string                     `json:"error,omitempty"`
	CreatedAt  time.Time                  `json:"createdAt"`
	UpdatedAt  time.Time                  `json:"updatedAt"`

	req *importer.Request
}

// QueueStatus 队列快照
type QueueStatus struct {
	State        QueueState `json:"state"`
	ActiveJobID  string     `json:"activeJobId,omitempty"`
	PendingCount int        `json:"pendingCount"`
}

// ImportService 表格导入队列
//
// 文件严格逐个处理：学员/教师的查找或创建不是事务性的，并发导入会产生重复实体。
// 校验只剩时间列错误时，队列进入 awaiting_decision 并暂停（无超时），
// 直到 Resume 给出确认或取消；期间不处理其他文件。
type ImportService interface {
	// Start 启动后台处理协程，ctx 取消时退出
	Start(ctx context.Context) error
	Enqueue(ctx context.Context, req *importer.Request) (*ImportJob, error)
	Resume(confirmed bool) (*ImportJob, error)
	Status() QueueStatus
	Job(id string) (*ImportJob, error)
	Jobs() []ImportJob
	// Wait 阻塞直到任务结束或进入待决策状态
	Wait(ctx context.Context, id string) (*ImportJob, error)
	// DryRun 只做校验，不写入
	DryRun(req *importer.Request) (*importer.ValidationResult, error)
}

type importService struct {
	pipeline *importer.Pipeline
	locker   Locker
	logger   *zap.Logger

	mu        sync.Mutex
	running   bool
	state     QueueState
	active    *ImportJob
	queue     []*ImportJob
	jobs      map[string]*ImportJob
	order     []string
	wake      chan struct{}
	decisions chan bool
	changed   chan struct{}
}

// NewImportService 创建导入队列
func NewImportService(pipeline *importer.Pipeline, locker Locker, logger *zap.Logger) ImportService {
	if locker == nil {
		locker = NewNoopLocker()
	}
	return &importService{
		pipeline:  pipeline,
		locker:    locker,
		logger:    logger,
		state:     QueueIdle,
		jobs:      map[string]*ImportJob{},
		wake:      make(chan struct{}, 1),
		decisions: make(chan bool, 1),
		changed:   make(chan struct{}),
	}
}

// ────────────────────── 队列操作 ──────────────────────

func (s *importService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrQueueAlreadyActive
	}
	s.running = true
	s.mu.Unlock()

	go s.loop(ctx)
	return nil
}

func (s *importService) Enqueue(_ context.Context, req *importer.Request) (*ImportJob, error) {
	if len(req.Data) == 0 {
		return nil, ErrEmptyUpload
	}

	now := time.Now()
	job := &ImportJob{
		ID:        uuid.NewString(),
		Filename:  req.Filename,
		Status:    JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
		req:       req,
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil, ErrQueueNotRunning
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	s.queue = append(s.queue, job)
	snapshot := *job
	s.notifyLocked()
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}

	s.logger.Info("导入任务已入队", zap.String("job", job.ID), zap.String("file", job.Filename))
	return &snapshot, nil
}

func (s *importService) Resume(confirmed bool) (*ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != QueueAwaitingDecision || s.active == nil {
		return nil, ErrNoPendingDecision
	}

	// 先离开等待状态，保证同一决策只被接受一次
	s.state = QueueProcessing
	s.setStatusLocked(s.active, JobProcessing)
	s.decisions <- confirmed

	snapshot := *s.active
	return &snapshot, nil
}

func (s *importService) Status() QueueStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := QueueStatus{State: s.state, PendingCount: len(s.queue)}
	if s.active != nil {
		st.ActiveJobID = s.active.ID
	}
	return st
}

func (s *importService) Job(id string) (*ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

func (s *importService) Jobs() []ImportJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ImportJob, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, *s.jobs[s.order[i]])
	}
	return out
}

func (s *importService) Wait(ctx context.Context, id string) (*ImportJob, error) {
	for {
		s.mu.Lock()
		job, ok := s.jobs[id]
		if !ok {
			s.mu.Unlock()
			return nil, ErrJobNotFound
		}
		if job.Status.Terminal() || job.Status == JobAwaitingDecision {
			snapshot := *job
			s.mu.Unlock()
			return &snapshot, nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *importService) DryRun(req *importer.Request) (*importer.ValidationResult, error) {
	if len(req.Data) == 0 {
		return nil, ErrEmptyUpload
	}
	return s.pipeline.Validate(req)
}

// ────────────────────── 后台处理 ──────────────────────

func (s *importService) loop(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		// 丢弃退出时尚未消费的决策
		select {
		case <-s.decisions:
		default:
		}
	}()

	for {
		job := s.next()
		if job == nil {
			select {
			case <-s.wake:
				continue
			case <-ctx.Done():
				return
			}
		}
		if !s.process(ctx, job) {
			return
		}
	}
}

// next 取出队首任务并进入 Processing
func (s *importService) next() *ImportJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	job := s.queue[0]
	s.queue = s.queue[1:]
	s.state = QueueProcessing
	s.active = job
	s.setStatusLocked(job, JobProcessing)
	return job
}

// process 处理单个任务；返回 false 表示 ctx 已取消，队列退出
func (s *importService) process(ctx context.Context, job *ImportJob) bool {
	log := s.logger.With(zap.String("job", job.ID), zap.String("file", job.Filename))

	result, err := s.run(ctx, job.req)

	var vErr *importer.ValidationFailedError
	if errors.As(err, &vErr) && vErr.Overridable() {
		s.mu.Lock()
		job.Validation = vErr.Result
		s.state = QueueAwaitingDecision
		s.setStatusLocked(job, JobAwaitingDecision)
		s.mu.Unlock()
		log.Info("仅缺少时间列，等待人工确认")

		var confirmed bool
		select {
		case confirmed = <-s.decisions:
		case <-ctx.Done():
			s.finish(job, nil, ctx.Err(), JobCancelled)
			return false
		}

		if !confirmed {
			log.Info("导入已取消")
			s.finish(job, nil, nil, JobCancelled)
			return true
		}

		override := *job.req
		override.AllowMissingTimes = true
		result, err = s.run(ctx, &override)
	}

	if err != nil {
		if errors.As(err, &vErr) {
			s.mu.Lock()
			job.Validation = vErr.Result
			s.mu.Unlock()
		}
		log.Warn("导入失败", zap.Error(err))
		s.finish(job, nil, err, JobFailed)
		return ctx.Err() == nil
	}

	log.Info("导入完成",
		zap.String("course", result.CourseName),
		zap.Bool("created", result.Created),
		zap.Int("sessions_created", result.SessionsCreated),
		zap.Int("sessions_updated", result.SessionsUpdated),
	)
	s.finish(job, result, nil, JobCompleted)
	return true
}

// run 持有跨进程锁执行一次流水线
func (s *importService) run(ctx context.Context, req *importer.Request) (*importer.Result, error) {
	release, err := s.locker.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.pipeline.Import(ctx, req)
}

func (s *importService) finish(job *ImportJob, result *importer.Result, err error, status JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.Result = result
	if err != nil {
		job.Error = err.Error()
	}
	job.req = nil
	s.active = nil
	s.state = QueueIdle
	s.setStatusLocked(job, status)
}

func (s *importService) setStatusLocked(job *ImportJob, status JobStatus) {
	job.Status = status
	job.UpdatedAt = time.Now()
	s.notifyLocked()
}

// notifyLocked 唤醒所有 Wait 调用
func (s *importService) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}
