package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// UserHandler implements registration, session, and profile endpoints.
type UserHandler struct {
	Users   UserStore
	Tokens  TokenManager
	Storage FileStorage

	// MaxUploadBytes caps multipart request bodies.
	MaxUploadBytes int64
	// SecureCookies marks issued cookies Secure; disabled only for local
	// plain-HTTP development.
	SecureCookies bool
	NowFunc       func() time.Time
}

const (
	accessCookie  = middleware.AccessTokenCookie
	refreshCookie = "refreshToken"
)

// Register handles POST /api/v1/users/register. The body is multipart form
// data carrying the account fields plus a required avatar image and an
// optional cover image.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload())
	if err := r.ParseMultipartForm(h.maxUpload()); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	fullName := strings.TrimSpace(r.FormValue("fullName"))
	password := r.FormValue("password")

	if username == "" || email == "" || fullName == "" || password == "" {
		respondError(ctx, w, http.StatusBadRequest, "username, email, fullName and password are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(password) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	avatarFile, avatarHeader, err := r.FormFile("avatar")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "avatar image is required")
		return
	}
	defer avatarFile.Close()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	userID := uuid.NewString()

	avatarURL, err := h.saveUpload(r, userID, "avatars", avatarHeader, avatarFile)
	if err != nil {
		logger.Error("upload avatar", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	coverURL := ""
	if coverFile, coverHeader, err := r.FormFile("coverImage"); err == nil {
		defer coverFile.Close()
		coverURL, err = h.saveUpload(r, userID, "covers", coverHeader, coverFile)
		if err != nil {
			logger.Error("upload cover image", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to store cover image")
			return
		}
	}

	now := h.now()
	user := models.User{
		ID:            userID,
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		PasswordHash:  string(hashed),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "username or email already in use")
			return
		}
		logger.Error("create user", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	respondData(ctx, w, http.StatusCreated, user.Public(), "account created")
}

// Login handles POST /api/v1/users/login. Either username or email
// identifies the account; tokens are issued as httpOnly cookies and echoed
// in the body for non-browser clients.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondFromError(ctx, w, err, "invalid request body")
		return
	}

	identifier := strings.TrimSpace(req.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" {
		respondError(ctx, w, http.StatusBadRequest, "username or email is required")
		return
	}

	user, err := h.Users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		logger.Error("login lookup", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to sign in")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	pair, err := h.issueSession(ctx, w, user)
	if err != nil {
		logger.Error("issue session", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to sign in")
		return
	}

	respondData(ctx, w, http.StatusOK, loginResponse{
		User:         user.Public(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "signed in")
}

// Logout handles POST /api/v1/users/logout. The stored refresh hash is
// cleared so every outstanding refresh token dies with the session.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	if err := h.Users.UpdateRefreshTokenHash(ctx, userID, ""); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logging.FromContext(ctx).Error("clear refresh token", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to sign out")
		return
	}

	h.clearAuthCookies(w)
	respondData(ctx, w, http.StatusOK, nil, "signed out")
}

// RefreshToken handles POST /api/v1/users/refresh-token. The incoming token
// must both verify and match the stored hash; a successful exchange rotates
// the pair, invalidating the presented token.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	token := h.incomingRefreshToken(r)
	if token == "" {
		respondError(ctx, w, http.StatusUnauthorized, "refresh token is required")
		return
	}

	userID, err := h.Tokens.VerifyRefresh(token)
	if err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		logger.Error("refresh lookup", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to refresh session")
		return
	}

	if user.RefreshTokenHash == "" || user.RefreshTokenHash != auth.HashToken(token) {
		respondError(ctx, w, http.StatusUnauthorized, "refresh token has been rotated or revoked")
		return
	}

	pair, err := h.issueSession(ctx, w, user)
	if err != nil {
		logger.Error("rotate session", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to refresh session")
		return
	}

	respondData(ctx, w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "session refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondFromError(ctx, w, err, "invalid request body")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondFromError(ctx, w, err, "account not found")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "current password is incorrect")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		respondFromError(ctx, w, err, "unable to change password")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "password changed")
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondFromError(ctx, w, err, "account not found")
		return
	}

	respondData(ctx, w, http.StatusOK, user.Public(), "current user")
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondFromError(ctx, w, err, "invalid request body")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondFromError(ctx, w, err, "account not found")
		return
	}

	user.FullName = strings.TrimSpace(req.FullName)
	user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	user.UpdatedAt = h.now()

	if err := h.Users.UpdateAccount(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "email already in use")
			return
		}
		respondFromError(ctx, w, err, "unable to update account")
		return
	}

	respondData(ctx, w, http.StatusOK, user.Public(), "account updated")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", "avatars", h.Users.UpdateAvatar, func(u models.User) string { return u.AvatarURL })
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", "covers", h.Users.UpdateCoverImage, func(u models.User) string { return u.CoverImageURL })
}

func (h UserHandler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field, prefix string,
	update func(ctx context.Context, id, url string) error,
	previous func(models.User) string,
) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload())
	if err := r.ParseMultipartForm(h.maxUpload()); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(field)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, field+" image is required")
		return
	}
	defer file.Close()

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondFromError(ctx, w, err, "account not found")
		return
	}

	url, err := h.saveUpload(r, userID, prefix, header, file)
	if err != nil {
		logger.Error("upload image", "field", field, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store image")
		return
	}

	if err := update(ctx, userID, url); err != nil {
		respondFromError(ctx, w, err, "unable to update image")
		return
	}

	if old := previous(user); old != "" {
		if err := h.Storage.Delete(ctx, old); err != nil {
			logger.Warn("delete replaced image", "error", err, "location", old)
		}
	}

	respondData(ctx, w, http.StatusOK, map[string]string{"url": url}, field+" updated")
}

// ChannelProfile handles GET /api/v1/users/c/{username}. Anonymous viewers
// see isSubscribed=false.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := strings.ToLower(strings.TrimSpace(r.PathValue("username")))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is required")
		return
	}

	profile, err := h.Users.ChannelProfile(ctx, username, middleware.UserIDFromContext(ctx))
	if err != nil {
		respondFromError(ctx, w, err, "channel not found")
		return
	}

	respondData(ctx, w, http.StatusOK, profile, "channel profile")
}

// WatchHistory handles GET /api/v1/users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	history, err := h.Users.WatchHistory(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respondFromError(ctx, w, err, "unable to load watch history")
		return
	}

	respondData(ctx, w, http.StatusOK, history, "watch history")
}

func (h UserHandler) issueSession(ctx context.Context, w http.ResponseWriter, user models.User) (auth.TokenPair, error) {
	pair, err := h.Tokens.Issue(user)
	if err != nil {
		return auth.TokenPair{}, err
	}

	if err := h.Users.UpdateRefreshTokenHash(ctx, user.ID, auth.HashToken(pair.RefreshToken)); err != nil {
		return auth.TokenPair{}, err
	}

	h.setAuthCookies(w, pair)
	return pair, nil
}

func (h UserHandler) setAuthCookies(w http.ResponseWriter, pair auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h UserHandler) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.SecureCookies,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func (h UserHandler) incomingRefreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(refreshCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req tokenResponse
	if err := decodeJSON(r, &req); err == nil {
		return strings.TrimSpace(req.RefreshToken)
	}
	return ""
}

func (h UserHandler) saveUpload(r *http.Request, userID, prefix string, header *multipart.FileHeader, file multipart.File) (string, error) {
	name := fmt.Sprintf("%s/%s/%s%s", prefix, userID, uuid.NewString(), path.Ext(header.Filename))
	return h.Storage.Save(r.Context(), name, header.Header.Get("Content-Type"), file)
}

func (h UserHandler) maxUpload() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return 256 << 20
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User         models.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}
