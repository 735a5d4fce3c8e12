package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskflow/internal/common"
	"github.com/dmitrijs2005/taskflow/internal/cryptox"
	"github.com/dmitrijs2005/taskflow/internal/dbx"
	"github.com/dmitrijs2005/taskflow/internal/logging"
	"github.com/dmitrijs2005/taskflow/internal/server/apperr"
	"github.com/dmitrijs2005/taskflow/internal/server/config"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskflow/internal/server/validation"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var googleScopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/calendar.events",
}

const tokenKeySalt = "taskflow/oauth-tokens"

// LinkedAccount describes a successful provider link.
type LinkedAccount struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Provider  string    `json:"provider"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// oauthState survives the provider redirect. It is signed so a callback
// cannot be pointed at another user's email.
type oauthState struct {
	Email string `json:"email"`
	TS    int64  `json:"ts"`
}

// OAuthService links accounts to Google and stores the issued tokens.
type OAuthService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	oauth           *oauth2.Config
	stateKey        []byte
	tokenKey        []byte
	stateTTL        time.Duration
	exchangeTimeout time.Duration
	now             func() time.Time
	logger          logging.Logger
}

func NewOAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *OAuthService {
	return &OAuthService{
		db:          db,
		repomanager: m,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       googleScopes,
			Endpoint:     google.Endpoint,
		},
		stateKey:        []byte(cfg.SecretKey),
		tokenKey:        cryptox.DeriveKey([]byte(cfg.SecretKey), []byte(tokenKeySalt)),
		stateTTL:        cfg.OAuthStateValidityDuration,
		exchangeTimeout: cfg.OAuthExchangeTimeout,
		now:             time.Now,
		logger:          l.With("module", "oauth"),
	}
}

func (s *OAuthService) configured() error {
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" {
		return apperr.Unavailable("google oauth is not configured", nil)
	}
	return nil
}

// AuthorizationURL returns the Google consent URL for the caller. Offline
// access is requested so the callback receives a refresh token.
func (s *OAuthService) AuthorizationURL(ctx context.Context, userID string) (string, error) {
	if err := s.configured(); err != nil {
		return "", err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return "", repoErr(err, "user not found")
	}

	state, err := s.encodeState(oauthState{Email: user.Email, TS: s.now().Unix()})
	if err != nil {
		return "", apperr.Internal("could not build state", err)
	}

	return s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// HandleCallback exchanges the authorization code and links the account
// named in state.
func (s *OAuthService) HandleCallback(ctx context.Context, cmd validation.OAuthCallbackCommand) (*LinkedAccount, error) {
	st, err := s.decodeState(cmd.State)
	if err != nil {
		s.logger.Warn(ctx, "oauth state rejected", "error", err)
		return nil, apperr.Validation("invalid state", nil)
	}

	if err := s.configured(); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, common.NormalizeEmail(st.Email))
	if err != nil {
		return nil, repoErr(err, "user not found")
	}

	exCtx, cancel := context.WithTimeout(ctx, s.exchangeTimeout)
	defer cancel()

	token, err := s.oauth.Exchange(exCtx, cmd.Code)
	if err != nil {
		s.logger.Error(ctx, "oauth exchange failed", "user_id", user.ID, "error", err)
		return nil, apperr.Internal("token exchange with provider failed", err)
	}

	expires := token.Expiry
	if expires.IsZero() && token.ExpiresIn > 0 {
		expires = s.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	access, err := cryptox.Seal(token.AccessToken, s.tokenKey)
	if err != nil {
		return nil, apperr.Internal("could not seal token", err)
	}
	refresh, err := cryptox.Seal(token.RefreshToken, s.tokenKey)
	if err != nil {
		return nil, apperr.Internal("could not seal token", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.AuthTokens(tx).Create(ctx, &models.AuthToken{
			UserID:       user.ID,
			AccessToken:  access,
			RefreshToken: refresh,
			Provider:     models.ProviderGoogle,
			ExpiresAt:    expires,
		}); err != nil {
			return err
		}
		return s.repomanager.Users(tx).SetOAuthLinked(ctx, user.ID, true)
	})
	if err != nil {
		return nil, repoErr(err, "user not found")
	}

	s.logger.Info(ctx, "google account linked", "user_id", user.ID)
	return &LinkedAccount{UserID: user.ID, Email: user.Email, Provider: models.ProviderGoogle, ExpiresAt: expires}, nil
}

// Token returns the latest Google token of a user with its secrets opened.
func (s *OAuthService) Token(ctx context.Context, userID string) (*models.AuthToken, error) {
	tok, err := s.repomanager.AuthTokens(s.db).Latest(ctx, userID, models.ProviderGoogle)
	if err != nil {
		return nil, repoErr(err, "google account not linked")
	}

	out := *tok
	if out.AccessToken, err = cryptox.Open(tok.AccessToken, s.tokenKey); err != nil {
		return nil, apperr.Internal("stored token is unreadable", err)
	}
	if out.RefreshToken, err = cryptox.Open(tok.RefreshToken, s.tokenKey); err != nil {
		return nil, apperr.Internal("stored token is unreadable", err)
	}
	return &out, nil
}

// Status reports the caller's current link.
func (s *OAuthService) Status(ctx context.Context, userID string) (*LinkedAccount, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "user not found")
	}
	tok, err := s.Token(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &LinkedAccount{UserID: user.ID, Email: user.Email, Provider: tok.Provider, ExpiresAt: tok.ExpiresAt}, nil
}

func (s *OAuthService) sign(payload string) string {
	mac := hmac.New(sha256.New, s.stateKey)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// encodeState renders base64url(json) "." base64url(hmac).
func (s *OAuthService) encodeState(st oauthState) (string, error) {
	b, err := json.Marshal(st)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(b)
	return payload + "." + s.sign(payload), nil
}

var (
	errStateFormat    = errors.New("malformed state")
	errStateSignature = errors.New("bad state signature")
	errStateExpired   = errors.New("state expired")
)

func (s *OAuthService) decodeState(raw string) (*oauthState, error) {
	payload, sig, ok := strings.Cut(raw, ".")
	if !ok || payload == "" || sig == "" {
		return nil, errStateFormat
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(payload))) {
		return nil, errStateSignature
	}

	b, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, errStateFormat
	}
	var st oauthState
	if err := json.Unmarshal(b, &st); err != nil || st.Email == "" {
		return nil, errStateFormat
	}

	issued := time.Unix(st.TS, 0)
	now := s.now()
	if now.Sub(issued) > s.stateTTL || issued.After(now.Add(time.Minute)) {
		return nil, errStateExpired
	}
	return &st, nil
}
