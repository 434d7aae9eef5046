package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/apperr"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/auth"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/database"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/models"
)

// AuthResult bundles the user summary and the freshly issued session token
// returned by Register and Login.
type AuthResult struct {
	User  models.UserSummary `json:"user"`
	Token string             `json:"token"`
}

// AuthServiceProvider defines the interface for authentication services.
type AuthServiceProvider interface {
	Register(ctx context.Context, email, password, name string) (AuthResult, error)
	Login(ctx context.Context, email, password string) (AuthResult, error)
	VerifyToken(ctx context.Context, token string) (models.UserSummary, error)
	Logout(ctx context.Context, token string) error
	PurgeExpiredSessions(ctx context.Context, olderThan time.Time) (int64, error)
}

// AuthService provides registration, login, and session management backed by
// the users and sessions tables.
type AuthService struct {
	db         *sql.DB
	events     EventServiceProvider
	sessionTTL time.Duration
}

// NewAuthService creates a new AuthService issuing sessions with the given
// lifetime.
func NewAuthService(db *sql.DB, events EventServiceProvider, sessionTTL time.Duration) *AuthService {
	return &AuthService{db: db, events: events, sessionTTL: sessionTTL}
}

// Register creates a user and an initial session. The email pre-check is a
// fast path only; the real uniqueness guarantee is the unique index on
// users.email, whose violation also surfaces as a conflict.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (AuthResult, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" || password == "" || name == "" {
		return AuthResult{}, apperr.Validation("email, password, and name are required")
	}
	if len(password) < 6 {
		return AuthResult{}, apperr.Validation("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, apperr.Storage(err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	}

	var token string
	err = database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		var existingID string
		err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", email).Scan(&existingID)
		if err == nil {
			return apperr.Conflict("email is already registered")
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return apperr.Storage(err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO users (id, email, name, password_hash) VALUES (?, ?, ?, ?)",
			user.ID, user.Email, user.Name, user.PasswordHash)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("email is already registered")
			}
			return apperr.Storage(err)
		}

		token, err = s.createSession(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return AuthResult{}, err
	}

	s.recordEvent(ctx, "user.register", "info", "user registered: "+user.Email, &user.ID)
	return AuthResult{User: user.Summary(), Token: token}, nil
}

// Login authenticates credentials and issues a new session. An unknown email
// and a wrong password produce the same error, so this path cannot be used to
// probe which addresses are registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = normalizeEmail(email)

	if email == "" || password == "" {
		return AuthResult{}, apperr.Validation("email and password are required")
	}

	var user models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash FROM users WHERE email = ?", email).
		Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AuthResult{}, apperr.Authentication("invalid email or password")
		}
		return AuthResult{}, apperr.Storage(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return AuthResult{}, apperr.Authentication("invalid email or password")
	}

	var token string
	err = database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		var txErr error
		token, txErr = s.createSession(ctx, tx, user.ID)
		return txErr
	})
	if err != nil {
		return AuthResult{}, err
	}

	s.recordEvent(ctx, "user.login", "info", "user logged in: "+user.Email, &user.ID)
	return AuthResult{User: user.Summary(), Token: token}, nil
}

// VerifyToken resolves a session token to its owning user. A token is valid
// iff a session row matches it and that row's expiry is strictly in the
// future. Pure read, no side effects.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (models.UserSummary, error) {
	if token == "" {
		return models.UserSummary{}, apperr.Authentication("token not provided")
	}

	var user models.UserSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.name
		FROM users u
		JOIN sessions s ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?`,
		token, time.Now().UTC().Format(database.TimeLayout)).
		Scan(&user.ID, &user.Email, &user.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UserSummary{}, apperr.Authentication("invalid or expired token")
		}
		return models.UserSummary{}, apperr.Storage(err)
	}
	return user, nil
}

// Logout revokes the session by setting its expiry to now. It is idempotent:
// revoking twice, or revoking an unknown token, both succeed, so clients
// cannot probe session existence through this path.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return apperr.Validation("token not provided")
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET expires_at = ? WHERE token = ?",
		time.Now().UTC().Format(database.TimeLayout), token)
	if err != nil {
		return apperr.Storage(err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.recordEvent(ctx, "user.logout", "info", "session revoked", nil)
	}
	return nil
}

// PurgeExpiredSessions deletes sessions whose expiry is older than the given
// cutoff and returns the number of rows removed. Used by the background
// reaper; recently expired sessions are kept so logout stays idempotent.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ?",
		olderThan.UTC().Format(database.TimeLayout))
	if err != nil {
		return 0, apperr.Storage(err)
	}
	return res.RowsAffected()
}

func (s *AuthService) createSession(ctx context.Context, q database.DBTX, userID string) (string, error) {
	token, err := auth.NewToken()
	if err != nil {
		return "", apperr.Storage(err)
	}

	expiresAt := time.Now().UTC().Add(s.sessionTTL)
	_, err = q.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, token, expires_at) VALUES (?, ?, ?, ?)",
		uuid.New().String(), userID, token, expiresAt.Format(database.TimeLayout))
	if err != nil {
		return "", apperr.Storage(err)
	}
	return token, nil
}

// recordEvent writes an audit event. Auditing must never fail the operation
// it describes, so errors are only logged.
func (s *AuthService) recordEvent(ctx context.Context, eventType, level, message string, userID *string) {
	if err := s.events.CreateEvent(ctx, eventType, level, message, userID); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
