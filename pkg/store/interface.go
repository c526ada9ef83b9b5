package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/rabbitfunding/pkg/models"
)

// ErrNotFound is returned when a user or report does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when creating a user whose email is taken.
var ErrDuplicateEmail = errors.New("email already exists")

// Storage defines the interface for the dashboard's own data: accounts,
// ledger edits and saved reports. Deal and payout rows are never stored.
type Storage interface {
	CreateUser(user *models.User) error
	GetUser(id uuid.UUID) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	ListUsers() ([]*models.User, error)
	UpdateUserStatus(id uuid.UUID, status models.UserStatus, at time.Time) error
	DeleteUser(id uuid.UUID) error

	SaveEdit(edit *models.TransactionEdit) error
	GetEdits() (map[string]models.TransactionEdit, error)

	CreateReport(report *models.SavedReport) error
	ListReports() ([]*models.SavedReport, error)
	DeleteReport(id uuid.UUID) error

	Close() error
}
