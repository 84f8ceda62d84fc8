package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/homiefindr/internal/logger"
	"github.com/homiefindr/internal/middleware"
	"github.com/homiefindr/internal/service"
)

type AuthHandler struct {
	authSvc *service.AuthService
}

func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login — вход по email и паролю. Неизвестный email с валидным паролем
// создаёт аккаунт (is_new_user=true в ответе).
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := h.authSvc.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimitExceeded):
			writeError(w, http.StatusTooManyRequests, "Слишком много попыток входа. Попробуйте позже.")
		case errors.Is(err, service.ErrInvalidEmail):
			writeError(w, http.StatusBadRequest, "Неверный формат email")
		case errors.Is(err, service.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "Пароль: минимум 6 символов, заглавная, строчная и цифра")
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Неверный email или пароль")
		case errors.Is(err, service.ErrUserDisabled):
			writeError(w, http.StatusForbidden, "Пользователь отключён и не может войти")
		default:
			logger.Errorf("login error email=%s device_id=%s: %v", req.Email, req.DeviceID, err)
			msg := "Ошибка входа"
			if os.Getenv("APP_ENV") != "production" && os.Getenv("DEBUG") != "" {
				msg = msg + ": " + strings.ReplaceAll(err.Error(), "\n", " ")
			}
			writeError(w, http.StatusInternalServerError, msg)
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) GetSessions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.authSvc.ListSessions(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Ошибка загрузки сессий")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ok, err := h.authSvc.Logout(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Ошибка выхода")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Сессия не найдена")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if _, err := h.authSvc.LogoutAll(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "Ошибка выхода")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ValidateRequest struct {
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Body      string `json:"body"`
}

type ValidateResponse struct {
	UserID string `json:"user_id"`
}

// ValidateSession — внутренний endpoint для API: проверка подписи запроса.
func ValidateSession(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ValidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		userID, err := authSvc.ValidateRequest(r.Context(), req.SessionID, req.Timestamp, req.Signature, req.Method, req.Path, req.Body)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeJSON(w, http.StatusOK, ValidateResponse{UserID: userID})
	}
}
