// Package memory is an in-memory RepositoryManager. Every repository it
// vends shares one store guarded by a mutex, so the dbx.DBTX argument is
// ignored and transactions are not isolated. It backs service and handler
// tests.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskflow/internal/common"
	"github.com/dmitrijs2005/taskflow/internal/dbx"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/attachments"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/authtokens"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/otpcodes"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/users"
	"github.com/google/uuid"
)

type store struct {
	mu          sync.Mutex
	users       map[string]*models.User
	otps        map[string]*models.OTPCode
	tokens      map[string]*models.AuthToken
	tasks       map[string]*models.Task
	attachments map[string]*models.Attachment
	now         func() time.Time
}

type RepositoryManager struct {
	s *store
}

func NewRepositoryManager() *RepositoryManager {
	return &RepositoryManager{s: &store{
		users:       map[string]*models.User{},
		otps:        map[string]*models.OTPCode{},
		tokens:      map[string]*models.AuthToken{},
		tasks:       map[string]*models.Task{},
		attachments: map[string]*models.Attachment{},
		now:         time.Now,
	}}
}

func (m *RepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *RepositoryManager) Users(dbx.DBTX) users.Repository             { return usersRepo{m.s} }
func (m *RepositoryManager) OTPCodes(dbx.DBTX) otpcodes.Repository       { return otpRepo{m.s} }
func (m *RepositoryManager) AuthTokens(dbx.DBTX) authtokens.Repository   { return tokensRepo{m.s} }
func (m *RepositoryManager) Tasks(dbx.DBTX) tasks.Repository             { return tasksRepo{m.s} }
func (m *RepositoryManager) Attachments(dbx.DBTX) attachments.Repository { return attachmentsRepo{m.s} }

// OTPCodesFor returns a snapshot of stored codes for a user, newest first.
func (m *RepositoryManager) OTPCodesFor(userID string) []models.OTPCode {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []models.OTPCode
	for _, c := range m.s.otps {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ExpireOTPCodes moves every stored code's expiry into the past.
func (m *RepositoryManager) ExpireOTPCodes() {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, c := range m.s.otps {
		c.ExpiresAt = m.s.now().Add(-time.Second)
	}
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

type usersRepo struct{ s *store }

func (r usersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = newID(u.ID)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	u.CreatedAt = r.s.now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.s.users[u.ID] = &cp
	return u, nil
}

func (r usersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r usersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r usersRepo) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all := make([]*models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return page(all, limit, offset), nil
}

func (r usersRepo) update(id string, fn func(u *models.User)) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	fn(u)
	u.UpdatedAt = r.s.now()
	cp := *u
	return &cp, nil
}

func (r usersRepo) UpdateUsername(_ context.Context, id, username string) (*models.User, error) {
	return r.update(id, func(u *models.User) { u.Username = username })
}

func (r usersRepo) UpdatePassword(_ context.Context, id, hash string) error {
	_, err := r.update(id, func(u *models.User) { u.PasswordHash = hash })
	return err
}

func (r usersRepo) MarkVerified(_ context.Context, id string) error {
	_, err := r.update(id, func(u *models.User) { u.IsVerified = true })
	return err
}

func (r usersRepo) SetOAuthLinked(_ context.Context, id string, linked bool) error {
	_, err := r.update(id, func(u *models.User) { u.OAuthLinked = linked })
	return err
}

// Delete removes the user and everything it owns.
func (r usersRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.users, id)
	for k, v := range r.s.otps {
		if v.UserID == id {
			delete(r.s.otps, k)
		}
	}
	for k, v := range r.s.tokens {
		if v.UserID == id {
			delete(r.s.tokens, k)
		}
	}
	for k, v := range r.s.tasks {
		if v.UserID == id {
			delete(r.s.tasks, k)
		}
	}
	for k, v := range r.s.attachments {
		if v.UserID == id {
			delete(r.s.attachments, k)
		}
	}
	return nil
}

type otpRepo struct{ s *store }

func (r otpRepo) Create(_ context.Context, c *models.OTPCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[c.UserID]; !ok {
		return common.ErrorNotFound
	}
	c.ID = newID(c.ID)
	c.CreatedAt = r.s.now()
	cp := *c
	r.s.otps[c.ID] = &cp
	return nil
}

func (r otpRepo) DeleteForUser(_ context.Context, userID string, t models.OTPType) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for k, v := range r.s.otps {
		if v.UserID == userID && v.Type == t {
			delete(r.s.otps, k)
			n++
		}
	}
	return n, nil
}

func (r otpRepo) Consume(_ context.Context, userID, code string, t models.OTPType) (*models.OTPCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var match *models.OTPCode
	for _, v := range r.s.otps {
		if v.UserID == userID && v.Code == code && v.Type == t {
			if match == nil || v.CreatedAt.After(match.CreatedAt) {
				match = v
			}
		}
	}
	if match == nil {
		return nil, common.ErrorNotFound
	}
	delete(r.s.otps, match.ID)
	cp := *match
	return &cp, nil
}

func (r otpRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for k, v := range r.s.otps {
		if v.ExpiresAt.Before(before) {
			delete(r.s.otps, k)
			n++
		}
	}
	return n, nil
}

type tokensRepo struct{ s *store }

func (r tokensRepo) Create(_ context.Context, t *models.AuthToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[t.UserID]; !ok {
		return common.ErrorNotFound
	}
	t.ID = newID(t.ID)
	t.CreatedAt = r.s.now()
	cp := *t
	r.s.tokens[t.ID] = &cp
	return nil
}

func (r tokensRepo) Latest(_ context.Context, userID, provider string) (*models.AuthToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var latest *models.AuthToken
	for _, t := range r.s.tokens {
		if t.UserID == userID && t.Provider == provider {
			if latest == nil || !t.CreatedAt.Before(latest.CreatedAt) {
				latest = t
			}
		}
	}
	if latest == nil {
		return nil, common.ErrorNotFound
	}
	cp := *latest
	return &cp, nil
}

type tasksRepo struct{ s *store }

func (r tasksRepo) Create(_ context.Context, t *models.Task) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t.ID = newID(t.ID)
	if t.Status == "" {
		t.Status = models.TaskPending
	}
	t.CreatedAt = r.s.now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.s.tasks[t.ID] = &cp
	return t, nil
}

func (r tasksRepo) GetByID(_ context.Context, id string) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (r tasksRepo) ListByUser(_ context.Context, userID string, f tasks.Filter) ([]*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*models.Task, 0)
	for _, t := range r.s.tasks {
		if t.UserID != userID || (f.Status != "" && t.Status != f.Status) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (r tasksRepo) Update(_ context.Context, t *models.Task) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.tasks[t.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	cp.UserID = existing.UserID
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = r.s.now()
	r.s.tasks[t.ID] = &cp
	out := cp
	return &out, nil
}

func (r tasksRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.tasks, id)
	for k, v := range r.s.attachments {
		if v.TaskID == id {
			delete(r.s.attachments, k)
		}
	}
	return nil
}

func (r tasksRepo) CountByStatus(_ context.Context, userID string) ([]models.TaskStatusCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	counts := map[models.TaskStatus]int64{}
	for _, t := range r.s.tasks {
		if t.UserID == userID {
			counts[t.Status]++
		}
	}
	out := make([]models.TaskStatusCount, 0, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		out = append(out, models.TaskStatusCount{Status: s, Count: counts[s]})
	}
	return out, nil
}

type attachmentsRepo struct{ s *store }

func (r attachmentsRepo) Create(_ context.Context, a *models.Attachment) (*models.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[a.TaskID]; !ok {
		return nil, common.ErrorNotFound
	}
	a.ID = newID(a.ID)
	a.CreatedAt = r.s.now()
	cp := *a
	r.s.attachments[a.ID] = &cp
	return a, nil
}

func (r attachmentsRepo) ListByTask(_ context.Context, taskID string) ([]*models.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*models.Attachment, 0)
	for _, a := range r.s.attachments {
		if a.TaskID == taskID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
