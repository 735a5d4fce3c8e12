package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/taskflow/internal/common"
	"github.com/dmitrijs2005/taskflow/internal/logging"
	"github.com/dmitrijs2005/taskflow/internal/server/apperr"
	"github.com/dmitrijs2005/taskflow/internal/server/auth"
	"github.com/dmitrijs2005/taskflow/internal/server/config"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskflow/internal/server/validation"
)

// LoginResult is a freshly issued session token and its owner.
type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
	User      *models.User
}

// UserService handles signup, login, session resolution and account
// management.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.Hasher
	otp         *OTPService
	jwtSecret   []byte
	tokenTTL    time.Duration
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, h *auth.Hasher, otp *OTPService, cfg *config.Config, l logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      h,
		otp:         otp,
		jwtSecret:   []byte(cfg.SecretKey),
		tokenTTL:    cfg.AccessTokenValidityDuration,
		logger:      l.With("module", "users"),
	}
}

// TokenTTL is the lifetime of issued session tokens.
func (s *UserService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// Signup creates an unverified user and sends an email verification code.
// A failure to queue the code is logged but does not undo the signup; the
// client can ask for a new code via /verify/send.
func (s *UserService) Signup(ctx context.Context, cmd validation.SignupCommand) (*models.User, error) {
	user, err := s.create(ctx, cmd, models.RoleUser, false)
	if err != nil {
		return nil, err
	}

	if err := s.otp.Issue(ctx, user, models.OTPEmailVerification); err != nil {
		s.logger.Warn(ctx, "signup otp not issued", "user_id", user.ID, "error", err)
	}

	s.logger.Info(ctx, "user signed up", "user_id", user.ID)
	return user, nil
}

// CreateAdmin creates an already verified administrator.
func (s *UserService) CreateAdmin(ctx context.Context, cmd validation.SignupCommand) (*models.User, error) {
	user, err := s.create(ctx, cmd, models.RoleAdmin, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "admin created", "user_id", user.ID)
	return user, nil
}

func (s *UserService) create(ctx context.Context, cmd validation.SignupCommand, role string, verified bool) (*models.User, error) {
	hash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, apperr.Internal("could not hash password", err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Username:     cmd.Username,
		Email:        cmd.Email,
		PasswordHash: hash,
		Role:         role,
		IsVerified:   verified,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, repoErr(err, "user not found")
	}
	return user, nil
}

// Login checks credentials and issues a session token. Unknown emails and
// wrong passwords produce the same error.
func (s *UserService) Login(ctx context.Context, cmd validation.LoginCommand) (*LoginResult, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, cmd.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.Auth("invalid email or password")
		}
		return nil, repoErr(err, "")
	}

	if !s.hasher.Verify(cmd.Password, user.PasswordHash) {
		return nil, apperr.Auth("invalid email or password")
	}
	if !user.IsVerified {
		return nil, apperr.Forbidden("email address is not verified")
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, apperr.Internal("could not issue token", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{Token: token, ExpiresIn: s.tokenTTL, User: user}, nil
}

// Authenticate resolves a session token to the identity of a user that
// still exists.
func (s *UserService) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	if token == "" {
		return auth.Identity{}, apperr.Auth("authentication required")
	}

	userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return auth.Identity{}, apperr.Auth("token expired")
		}
		return auth.Identity{}, apperr.Auth("invalid token")
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.Identity{}, apperr.Auth("user no longer exists")
		}
		return auth.Identity{}, repoErr(err, "")
	}

	return auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "user not found")
	}
	return user, nil
}

func (s *UserService) UpdateMe(ctx context.Context, userID string, cmd validation.UpdateUserCommand) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).UpdateUsername(ctx, userID, cmd.Username)
	if err != nil {
		return nil, repoErr(err, "user not found")
	}
	return user, nil
}

// DeleteMe removes the caller's account; tasks, codes and tokens cascade.
func (s *UserService) DeleteMe(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, userID); err != nil {
		return repoErr(err, "user not found")
	}
	s.logger.Info(ctx, "user deleted", "user_id", userID)
	return nil
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.repomanager.Users(s.db).List(ctx, limit, offset)
	if err != nil {
		return nil, repoErr(err, "")
	}
	return users, nil
}
