package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
	"github.com/mesbahtanvir/docuchan/backend/internal/auth"
	"github.com/mesbahtanvir/docuchan/backend/internal/utils"
)

// AuthHandler maps `/auth/register`, `/auth/login`, and `/auth/refresh`
// (spec.md §6) onto the Auth Core.
type AuthHandler struct {
	core   *auth.Core
	logger *zap.Logger
}

// NewAuthHandler builds an AuthHandler over core.
func NewAuthHandler(core *auth.Core, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{core: core, logger: logger}
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

type registerResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondError(w, apperr.Wrap(apperr.InvalidArgument, "invalid JSON body", err))
		return
	}

	user, err := h.core.CreateUser(r.Context(), req.Email, req.Password, req.DisplayName, req.PhotoURL)
	if err != nil {
		utils.RespondError(w, err)
		return
	}

	utils.RespondSuccess(w, registerResponse{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondError(w, apperr.Wrap(apperr.InvalidArgument, "invalid JSON body", err))
		return
	}

	pair, err := h.core.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.RespondError(w, err)
		return
	}

	utils.RespondSuccess(w, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, ExpiresIn: pair.ExpiresIn})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondError(w, apperr.Wrap(apperr.InvalidArgument, "invalid JSON body", err))
		return
	}

	pair, err := h.core.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		utils.RespondError(w, err)
		return
	}

	utils.RespondSuccess(w, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, ExpiresIn: pair.ExpiresIn})
}
