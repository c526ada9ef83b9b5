package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/rabbitfunding/pkg/models"
)

// MemoryStore is an in-memory implementation of the Storage interface for
// tests and throwaway runs.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*models.User
	edits   map[string]models.TransactionEdit
	reports map[uuid.UUID]*models.SavedReport
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[uuid.UUID]*models.User),
		edits:   make(map[string]models.TransactionEdit),
		reports: make(map[uuid.UUID]*models.SavedReport),
	}
}

func (m *MemoryStore) CreateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MemoryStore) GetUser(id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListUsers() ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := []*models.User{}
	for _, u := range m.users {
		copied := *u
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func (m *MemoryStore) UpdateUserStatus(id uuid.UUID, status models.UserStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	u.Status = status
	switch status {
	case models.UserStatusApproved:
		u.ApprovedAt = &at
	case models.UserStatusRejected:
		u.RejectedAt = &at
	}
	return nil
}

func (m *MemoryStore) DeleteUser(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MemoryStore) SaveEdit(edit *models.TransactionEdit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.edits[edit.HistoryKey]; ok && edit.EditedAt.Before(prev.EditedAt) {
		return nil
	}
	m.edits[edit.HistoryKey] = *edit
	return nil
}

func (m *MemoryStore) GetEdits() (map[string]models.TransactionEdit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	edits := make(map[string]models.TransactionEdit, len(m.edits))
	for k, v := range m.edits {
		edits[k] = v
	}
	return edits, nil
}

func (m *MemoryStore) CreateReport(report *models.SavedReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *report
	m.reports[report.ID] = &copied
	return nil
}

func (m *MemoryStore) ListReports() ([]*models.SavedReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reports := []*models.SavedReport{}
	for _, r := range m.reports {
		copied := *r
		reports = append(reports, &copied)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].GeneratedAt.After(reports[j].GeneratedAt)
	})
	return reports, nil
}

func (m *MemoryStore) DeleteReport(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
