package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskflow/internal/common"
	"github.com/dmitrijs2005/taskflow/internal/dbx"
	"github.com/dmitrijs2005/taskflow/internal/logging"
	"github.com/dmitrijs2005/taskflow/internal/server/apperr"
	"github.com/dmitrijs2005/taskflow/internal/server/auth"
	"github.com/dmitrijs2005/taskflow/internal/server/config"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
	"github.com/dmitrijs2005/taskflow/internal/server/queue"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskflow/internal/server/validation"
)

// OTPService issues and verifies one-time codes. Delivery is delegated to
// the queue; this service never sends mail itself.
type OTPService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	publisher   queue.Publisher
	hasher      *auth.Hasher
	length      int
	ttl         time.Duration
	now         func() time.Time
	logger      logging.Logger
}

func NewOTPService(db *sql.DB, m repomanager.RepositoryManager, p queue.Publisher, h *auth.Hasher, cfg *config.Config, l logging.Logger) *OTPService {
	return &OTPService{
		db:          db,
		repomanager: m,
		publisher:   p,
		hasher:      h,
		length:      cfg.OTPLength,
		ttl:         cfg.OTPValidityDuration,
		now:         time.Now,
		logger:      l.With("module", "otp"),
	}
}

// Issue replaces any outstanding code of the same purpose with a fresh one
// and queues it for delivery to user's email.
func (s *OTPService) Issue(ctx context.Context, user *models.User, purpose models.OTPType) error {
	code, err := common.RandomDigits(s.length)
	if err != nil {
		return apperr.Internal("could not generate code", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.OTPCodes(tx)
		if _, err := repo.DeleteForUser(ctx, user.ID, purpose); err != nil {
			return err
		}
		return repo.Create(ctx, &models.OTPCode{
			UserID:    user.ID,
			Code:      code,
			Type:      purpose,
			ExpiresAt: s.now().Add(s.ttl),
		})
	})
	if err != nil {
		return repoErr(err, "user not found")
	}

	if err := s.publisher.PublishOTP(ctx, s.message(user.Email, code, purpose)); err != nil {
		s.logger.Error(ctx, "otp publish failed", "user_id", user.ID, "type", purpose, "error", err)
		return apperr.Unavailable("could not queue verification email", err)
	}

	s.logger.Info(ctx, "otp issued", "user_id", user.ID, "type", purpose)
	return nil
}

func (s *OTPService) message(email, code string, purpose models.OTPType) queue.OTPMessage {
	minutes := int(s.ttl.Minutes())
	msg := queue.OTPMessage{Email: email, Type: string(purpose)}
	switch purpose {
	case models.OTPResetPassword:
		msg.Subject = "Reset your password"
		msg.Message = fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", code, minutes)
	default:
		msg.Subject = "Verify your email"
		msg.Message = fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes)
	}
	return msg
}

// Send issues a code for the account registered under cmd.Email.
func (s *OTPService) Send(ctx context.Context, cmd validation.SendOTPCommand) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, cmd.Email)
	if err != nil {
		return repoErr(err, "user not found")
	}
	return s.Issue(ctx, user, cmd.Type)
}

// Verify consumes a matching code. The delete is the only arbiter of
// single use: of two concurrent calls with the same code, one gets
// "invalid otp". On success the user is marked verified and, for password
// resets, the new password is stored in the same transaction.
func (s *OTPService) Verify(ctx context.Context, cmd validation.ConfirmOTPCommand) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, cmd.Email)
	if err != nil {
		return repoErr(err, "user not found")
	}

	var newHash string
	if cmd.Type == models.OTPResetPassword {
		if newHash, err = s.hasher.Hash(cmd.NewPassword); err != nil {
			return apperr.Internal("could not hash password", err)
		}
	}

	expired := false
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		code, err := s.repomanager.OTPCodes(tx).Consume(ctx, user.ID, cmd.OTP, cmd.Type)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return apperr.Validation("invalid otp", nil)
			}
			return err
		}
		// keep the delete: an expired code is spent either way
		if code.ExpiresAt.Before(s.now()) {
			expired = true
			return nil
		}

		users := s.repomanager.Users(tx)
		if err := users.MarkVerified(ctx, user.ID); err != nil {
			return err
		}
		if newHash != "" {
			return users.UpdatePassword(ctx, user.ID, newHash)
		}
		return nil
	})
	if err != nil {
		return repoErr(err, "user not found")
	}
	if expired {
		return &apperr.Error{Kind: apperr.KindValidation, Message: "otp has expired", Err: common.ErrOTPExpired}
	}

	s.logger.Info(ctx, "otp verified", "user_id", user.ID, "type", cmd.Type)
	return nil
}

// PurgeExpired deletes codes whose expiry has passed.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repomanager.OTPCodes(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug(ctx, "purged expired otp codes", "count", n)
	}
	return n, nil
}
