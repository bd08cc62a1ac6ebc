package achievement

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER STORE INTERFACES
// Внешнее хранилище пользователей и прогресса. Реализации находятся
// в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Role - роль пользователя во внешнем хранилище.
type Role string

const (
	RoleLearner    Role = "learner"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// LearnerRecord - запись пользователя, через которую движок читает
// и изменяет прогресс.
type LearnerRecord interface {
	// IsLearner проверяет роль учащегося.
	IsLearner() bool

	// ProgressSnapshot возвращает текущий снимок прогресса.
	ProgressSnapshot() *ProgressSnapshot

	// AddUnlockedAchievement добавляет ID в множество выданных (идемпотентно).
	AddUnlockedAchievement(id string)
}

// LearnerStore определяет операции внешнего хранилища.
type LearnerStore interface {
	// FindLearnerByID возвращает запись пользователя.
	// Возвращает ошибку с видом shared.ErrNotFound, если записи нет.
	FindLearnerByID(ctx context.Context, id string) (LearnerRecord, error)

	// Persist сохраняет запись. Вызывается не более одного раза за оценку
	// и только если что-то разблокировано.
	Persist(ctx context.Context, learnerID string, record LearnerRecord) error

	// AllLearners возвращает все записи (включая не-учащихся).
	AllLearners(ctx context.Context) ([]LearnerRecord, error)
}

// CatalogStore сохраняет пользовательские определения и флаги активности,
// чтобы каталог переживал перезапуск процесса.
type CatalogStore interface {
	// SaveDefinition сохраняет определение (upsert по ID).
	SaveDefinition(ctx context.Context, def Definition) error

	// SetActive обновляет флаг активности.
	SetActive(ctx context.Context, id string, active bool) error

	// LoadDefinitions возвращает сохранённые определения в порядке создания.
	LoadDefinitions(ctx context.Context) ([]Definition, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER
// ══════════════════════════════════════════════════════════════════════════════

// Learner - конкретная запись пользователя, используемая хранилищами.
type Learner struct {
	ID       string
	Role     Role
	Progress *ProgressSnapshot
}

// NewLearner создаёт учащегося с пустым прогрессом.
func NewLearner(id string) *Learner {
	return &Learner{
		ID:       id,
		Role:     RoleLearner,
		Progress: NewProgressSnapshot(0, nil, nil, nil),
	}
}

// IsLearner реализует LearnerRecord.
func (l *Learner) IsLearner() bool {
	return l != nil && l.Role == RoleLearner
}

// ProgressSnapshot реализует LearnerRecord.
func (l *Learner) ProgressSnapshot() *ProgressSnapshot {
	if l == nil {
		return nil
	}
	return l.Progress
}

// AddUnlockedAchievement реализует LearnerRecord.
func (l *Learner) AddUnlockedAchievement(id string) {
	if l.Progress == nil {
		l.Progress = NewProgressSnapshot(0, nil, nil, nil)
	}
	l.Progress.AddUnlocked(id)
}

// Clone возвращает независимую копию записи.
func (l *Learner) Clone() *Learner {
	if l == nil {
		return nil
	}
	return &Learner{ID: l.ID, Role: l.Role, Progress: l.Progress.Clone()}
}
