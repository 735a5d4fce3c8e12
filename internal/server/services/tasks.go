package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/taskflow/internal/dbx"
	"github.com/dmitrijs2005/taskflow/internal/logging"
	"github.com/dmitrijs2005/taskflow/internal/server/apperr"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskflow/internal/server/validation"
	"github.com/google/uuid"
)

type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *TaskService {
	return &TaskService{db: db, repomanager: m, logger: l.With("module", "tasks")}
}

// loadOwned fetches a task for userID. A missing task (or a malformed ID)
// is NotFound; an existing task owned by someone else is Forbidden. The
// existence check always runs first.
func loadOwned(ctx context.Context, repo tasks.Repository, userID, taskID string) (*models.Task, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return nil, apperr.NotFound("task not found")
	}

	task, err := repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, repoErr(err, "task not found")
	}
	if task.UserID != userID {
		return nil, apperr.Forbidden("you do not have access to this task")
	}
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, userID string, cmd validation.CreateTaskCommand) (*models.Task, error) {
	task, err := s.repomanager.Tasks(s.db).Create(ctx, &models.Task{
		UserID:          userID,
		Title:           cmd.Title,
		Description:     cmd.Description,
		Status:          cmd.Status,
		StartTime:       cmd.StartTime,
		EndTime:         cmd.EndTime,
		CalendarEventID: cmd.CalendarEventID,
	})
	if err != nil {
		return nil, repoErr(err, "user not found")
	}
	s.logger.Info(ctx, "task created", "task_id", task.ID, "user_id", userID)
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*models.Task, error) {
	return loadOwned(ctx, s.repomanager.Tasks(s.db), userID, taskID)
}

func (s *TaskService) List(ctx context.Context, userID string, q validation.ListTasksQuery) ([]*models.Task, error) {
	list, err := s.repomanager.Tasks(s.db).ListByUser(ctx, userID, tasks.Filter{
		Status: q.Status,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		return nil, repoErr(err, "")
	}
	return list, nil
}

// Update applies a partial update. The read, ownership check and write run
// in one transaction so the merged time range is checked against the row
// that is actually written.
func (s *TaskService) Update(ctx context.Context, userID, taskID string, cmd validation.UpdateTaskCommand) (*models.Task, error) {
	var updated *models.Task
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Tasks(tx)
		task, err := loadOwned(ctx, repo, userID, taskID)
		if err != nil {
			return err
		}
		if err := cmd.Apply(task); err != nil {
			return err
		}
		updated, err = repo.Update(ctx, task)
		return err
	})
	if err != nil {
		return nil, repoErr(err, "task not found")
	}
	s.logger.Info(ctx, "task updated", "task_id", taskID, "user_id", userID)
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Tasks(tx)
		if _, err := loadOwned(ctx, repo, userID, taskID); err != nil {
			return err
		}
		return repo.Delete(ctx, taskID)
	})
	if err != nil {
		return repoErr(err, "task not found")
	}
	s.logger.Info(ctx, "task deleted", "task_id", taskID, "user_id", userID)
	return nil
}

// Report counts the caller's tasks per status.
func (s *TaskService) Report(ctx context.Context, userID string) ([]models.TaskStatusCount, error) {
	counts, err := s.repomanager.Tasks(s.db).CountByStatus(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "")
	}
	return counts, nil
}
