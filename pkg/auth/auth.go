package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mcclellann/rabbitfunding/pkg/logger"
	"github.com/mcclellann/rabbitfunding/pkg/models"
	"github.com/mcclellann/rabbitfunding/pkg/store"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenTTL   = 24 * time.Hour
	DefaultBcryptCost = 12
	MinPasswordLength = 6
)

var (
	ErrMissingFields      = errors.New("name, email and password are required")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrRequestPending     = errors.New("a request with this email is already pending approval")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPendingApproval    = errors.New("your account is pending approval, please wait for admin approval")
	ErrAccessRejected     = errors.New("your access request has been rejected")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrProtectedUser      = errors.New("admin accounts cannot be modified")
)

// Claims is the JWT payload issued on login.
type Claims struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

// Service gates dashboard access: account requests, admin approval and
// session tokens.
type Service struct {
	store  store.Storage
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewService(s store.Storage, cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	return &Service{
		store:  s,
		secret: []byte(cfg.Secret),
		ttl:    cfg.TokenTTL,
		cost:   cfg.BcryptCost,
		now:    time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) newUser(name, email, password string, role models.Role, status models.UserStatus) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	existing, err := s.store.GetUserByEmail(email)
	switch {
	case err == nil:
		if existing.Status == models.UserStatusPending {
			return nil, ErrRequestPending
		}
		return nil, ErrEmailTaken
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       status,
		CreatedAt:    now,
	}
	if status == models.UserStatusApproved {
		user.ApprovedAt = &now
	}

	if err := s.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// RequestAccess records a pending account that an admin must approve.
func (s *Service) RequestAccess(name, email, password string) (*models.User, error) {
	user, err := s.newUser(name, email, password, models.RoleUser, models.UserStatusPending)
	if err != nil {
		return nil, err
	}
	logger.L.Info("Access requested", "userID", user.ID, "email", user.Email)
	return user, nil
}

// AddUser creates an account that is approved immediately.
func (s *Service) AddUser(name, email, password string) (*models.User, error) {
	user, err := s.newUser(name, email, password, models.RoleUser, models.UserStatusApproved)
	if err != nil {
		return nil, err
	}
	logger.L.Info("User added by admin", "userID", user.ID, "email", user.Email)
	return user, nil
}

// EnsureAdmin creates the admin account if no user holds the email yet.
func (s *Service) EnsureAdmin(name, email, password string) error {
	_, err := s.store.GetUserByEmail(normalizeEmail(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	user, err := s.newUser(name, email, password, models.RoleAdmin, models.UserStatusApproved)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	logger.L.Info("Default admin user created", "email", user.Email)
	return nil
}

func statusError(status models.UserStatus) error {
	switch status {
	case models.UserStatusApproved:
		return nil
	case models.UserStatusPending:
		return ErrPendingApproval
	default:
		return ErrAccessRejected
	}
}

// Login checks credentials and returns a signed token for an approved user.
func (s *Service) Login(email, password string) (string, *models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, ErrMissingFields
	}

	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := statusError(user.Status); err != nil {
		return "", nil, err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *Service) issueToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		ID:    user.ID.String(),
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token and reloads its user, who must still be approved.
func (s *Service) Verify(tokenString string) (*models.User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.store.GetUser(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := statusError(user.Status); err != nil {
		return nil, err
	}
	return user, nil
}

// ListPending returns accounts waiting for approval.
func (s *Service) ListPending() ([]*models.User, error) {
	users, err := s.store.ListUsers()
	if err != nil {
		return nil, err
	}
	pending := []*models.User{}
	for _, u := range users {
		if u.Status == models.UserStatusPending {
			pending = append(pending, u)
		}
	}
	return pending, nil
}

// ListUsers returns every non-admin account.
func (s *Service) ListUsers() ([]*models.User, error) {
	users, err := s.store.ListUsers()
	if err != nil {
		return nil, err
	}
	out := []*models.User{}
	for _, u := range users {
		if u.Role != models.RoleAdmin {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Service) setStatus(id uuid.UUID, status models.UserStatus) error {
	user, err := s.store.GetUser(id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		return ErrProtectedUser
	}
	if err := s.store.UpdateUserStatus(id, status, s.now()); err != nil {
		return err
	}
	logger.L.Info("User status changed", "userID", id, "status", status)
	return nil
}

func (s *Service) Approve(id uuid.UUID) error {
	return s.setStatus(id, models.UserStatusApproved)
}

func (s *Service) Reject(id uuid.UUID) error {
	return s.setStatus(id, models.UserStatusRejected)
}

// Delete removes a non-admin account.
func (s *Service) Delete(id uuid.UUID) error {
	user, err := s.store.GetUser(id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		return ErrProtectedUser
	}
	if err := s.store.DeleteUser(id); err != nil {
		return err
	}
	logger.L.Info("User deleted", "userID", id)
	return nil
}
