package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homiefindr/internal/logger"
	"github.com/homiefindr/internal/model"
	"github.com/homiefindr/internal/repository"
	"github.com/homiefindr/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password must be at least 6 characters with upper, lower and digit")
	ErrUserDisabled       = errors.New("user disabled")
	ErrSessionInvalid     = errors.New("session invalid")
)

func maskSessionID(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "***"
}

// Валидация email: допустимый формат (упрощённый, без полного RFC).
var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidPassword: минимум 6 символов, хотя бы одна заглавная, строчная и цифра.
func ValidPassword(p string) bool {
	if len(p) < 6 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}

// AuthService — вход по email и паролю. Неизвестный email при корректном
// пароле означает регистрацию: аккаунт создаётся прямо при входе
// (поведение мобильного клиента, отдельного экрана регистрации нет).
type AuthService struct {
	userRepo    *repository.UserRepository
	profileRepo *repository.ProfileRepository
	sessionRepo *repository.SessionRepository
	store       storage.SessionStore
}

func NewAuthService(
	userRepo *repository.UserRepository,
	profileRepo *repository.ProfileRepository,
	sessionRepo *repository.SessionRepository,
	store storage.SessionStore,
) *AuthService {
	return &AuthService{
		userRepo: userRepo, profileRepo: profileRepo, sessionRepo: sessionRepo, store: store,
	}
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"` // опционально
}

type LoginResponse struct {
	UID           string `json:"uid"`
	SessionID     string `json:"session_id"`
	SessionSecret string `json:"session_secret"`
	IsNewUser     bool   `json:"is_new_user"`
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	emailNorm := strings.TrimSpace(strings.ToLower(req.Email))
	if emailNorm == "" || req.Password == "" || req.DeviceID == "" {
		return nil, fmt.Errorf("email, password и device_id обязательны")
	}
	if !emailRegexp.MatchString(emailNorm) {
		return nil, ErrInvalidEmail
	}
	allowed, err := s.store.CheckRateLimit(ctx, emailNorm)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRateLimitExceeded
	}

	user, err := s.userRepo.GetByEmail(ctx, emailNorm)
	isNewUser := false
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if !ValidPassword(req.Password) {
			return nil, ErrWeakPassword
		}
		user, err = s.createAccount(ctx, emailNorm, req.Password)
		if err != nil {
			return nil, err
		}
		isNewUser = true
	case err != nil:
		return nil, err
	default:
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			return nil, ErrInvalidCredentials
		}
	}
	if user.DisabledAt != nil {
		return nil, ErrUserDisabled
	}

	// Профиль создаётся при первом входе, если его ещё нет
	if err := s.profileRepo.EnsureExists(ctx, user.UID, user.Email); err != nil {
		logger.Errorf("login: EnsureExists profile uid=%s: %v", user.UID, err)
	}

	sessionID := uuid.New().String()
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	secretB64 := base64.StdEncoding.EncodeToString(secret)
	h := sha256.Sum256(secret)
	now := time.Now().UTC()
	session := &model.Session{
		ID: sessionID, UserID: user.UID, DeviceID: req.DeviceID, DeviceName: strings.TrimSpace(req.DeviceName),
		SecretHash: hex.EncodeToString(h[:]), LastSeenAt: now, CreatedAt: now,
	}
	if err := s.sessionRepo.Upsert(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.store.SetSessionSecret(ctx, sessionID, secretB64); err != nil {
		logger.Errorf("login: SetSessionSecret failed: %v", err)
		if _, revErr := s.sessionRepo.RevokeByID(ctx, sessionID); revErr != nil {
			logger.Errorf("login: rollback revoke session: %v", revErr)
		}
		return nil, fmt.Errorf("save session secret: %w", err)
	}
	return &LoginResponse{UID: user.UID, SessionID: sessionID, SessionSecret: secretB64, IsNewUser: isNewUser}, nil
}

func (s *AuthService) createAccount(ctx context.Context, emailAddr, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		UID:          uuid.New().String(),
		Email:        emailAddr,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]model.Session, error) {
	return s.sessionRepo.ListByUserID(ctx, userID)
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) (bool, error) {
	ok, err := s.sessionRepo.RevokeByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if ok {
		if err := s.store.DeleteSessionSecret(ctx, sessionID); err != nil {
			logger.Errorf("Logout: DeleteSessionSecret session_id=%s: %v", maskSessionID(sessionID), err)
		}
	}
	return ok, nil
}

func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	ids, err := s.sessionRepo.RevokeByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.store.DeleteSessionSecret(ctx, id); err != nil {
			logger.Errorf("LogoutAll: DeleteSessionSecret session_id=%s: %v", maskSessionID(id), err)
		}
	}
	return int64(len(ids)), nil
}

// ValidateRequest проверяет подпись запроса и возвращает uid. Используется API через POST /internal/validate.
// timestamp — Unix секунды; допустимое отклонение ±30 сек.
func (s *AuthService) ValidateRequest(ctx context.Context, sessionID, timestamp, signature, method, path, body string) (userID string, err error) {
	if sessionID == "" || timestamp == "" || signature == "" {
		return "", ErrSessionInvalid
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return "", ErrSessionInvalid
	}
	t := time.Unix(ts, 0)
	if time.Since(t) > 30*time.Second || time.Until(t) > 30*time.Second {
		logger.Errorf("validate: timestamp out of window session_id=%s", maskSessionID(sessionID))
		return "", ErrSessionInvalid
	}
	secretB64, err := s.store.GetSessionSecret(ctx, sessionID)
	if err != nil || secretB64 == "" {
		logger.Errorf("validate: no session_secret session_id=%s", maskSessionID(sessionID))
		return "", ErrSessionInvalid
	}
	secret, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil || len(secret) != 32 {
		return "", ErrSessionInvalid
	}
	tryPath := func(p string) bool {
		pl := method + p + body + timestamp
		mac := hmac.New(sha256.New, secret)
		mac.Write([]byte(pl))
		expected := hex.EncodeToString(mac.Sum(nil))
		return hmac.Equal([]byte(signature), []byte(expected))
	}
	// Клиент мог подписать path без префикса /api (прокси срезает префикс)
	if !tryPath(path) && !(strings.HasPrefix(path, "/api/") && tryPath(path[4:])) {
		logger.Errorf("validate: signature mismatch path=%q", path)
		return "", ErrSessionInvalid
	}
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil || sess == nil {
		logger.Errorf("validate: session not found session_id=%s err=%v", maskSessionID(sessionID), err)
		return "", ErrSessionInvalid
	}
	user, err := s.userRepo.GetByID(ctx, sess.UserID)
	if err != nil || user == nil || user.DisabledAt != nil {
		return "", ErrSessionInvalid
	}
	if err := s.sessionRepo.UpdateLastSeen(ctx, sessionID, time.Now().UTC()); err != nil {
		logger.Errorf("validate: UpdateLastSeen session_id=%s: %v", maskSessionID(sessionID), err)
	}
	return sess.UserID, nil
}
