// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	userstore "github.com/dalemusser/confinedspace/internal/app/store/users"
	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"github.com/dalemusser/confinedspace/internal/app/system/auditlog"
	"github.com/dalemusser/confinedspace/internal/app/system/auth"
	"github.com/dalemusser/confinedspace/internal/app/system/inputval"
	"github.com/dalemusser/confinedspace/internal/app/system/normalize"
	"github.com/dalemusser/confinedspace/internal/app/system/ratelimit"
	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/dalemusser/confinedspace/internal/app/system/timeouts"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the /auth endpoints: register, login, logout and me.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	Audit      *auditlog.Logger
	Log        *zap.Logger
}

// NewHandler builds the auth handler. A nil limiter gets the default
// limits; a nil audit logger records nothing.
func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if limiter == nil {
		limiter = ratelimit.NewLoginLimiter()
	}
	return &Handler{
		Users:      userstore.New(db),
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		Audit:      audit,
		Log:        logger,
	}
}

type registerInput struct {
	Email     string `json:"email" label:"Email" validate:"required,email,max=254"`
	Password  string `json:"password" label:"Password" validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" label:"First name" validate:"required,max=100"`
	LastName  string `json:"lastName" label:"Last name" validate:"required,max=100"`
}

type loginInput struct {
	Email    string `json:"email" label:"Email" validate:"required,email"`
	Password string `json:"password" label:"Password" validate:"required"`
}

// userView is the public shape of a signed-in user.
type userView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func viewOf(u models.User) userView {
	return userView{
		ID:        u.ID.Hex(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

// HandleRegister handles POST /auth/register. New accounts always get the
// "user" role and are signed in immediately.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	in.Email = normalize.Email(in.Email)
	in.FirstName = normalize.Name(in.FirstName)
	in.LastName = normalize.Name(in.LastName)
	if err := inputval.Struct(in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      "user",
	}, in.Password)
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		respond.Error(w, h.Log, apperr.Invalid("email", "An account with this email already exists."))
		return
	}
	if err != nil {
		h.Log.Error("register: create user", zap.Error(err))
		respond.Message(w, http.StatusInternalServerError, "Could not create account")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.Log.Error("register: save session", zap.Error(err))
		respond.Message(w, http.StatusInternalServerError, "Could not start session")
		return
	}

	h.Audit.UserRegistered(ctx, r, u.ID, u.Email)
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))
	respond.Created(w, map[string]any{"user": viewOf(u)})
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	in.Email = normalize.Email(in.Email)
	if err := inputval.Struct(in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	if d := h.Limiter.Check(r, in.Email); !d.Allowed {
		h.Log.Warn("login rate limited",
			zap.String("ip", ratelimit.ClientIP(r)),
			zap.String("email", in.Email),
			zap.String("scope", d.Scope))
		h.Audit.LoginRateLimited(r.Context(), r, in.Email, d.Reason)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
		respond.Message(w, http.StatusTooManyRequests, d.Reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Authenticate(ctx, in.Email, in.Password)
	if errors.Is(err, userstore.ErrBadCredentials) {
		h.Audit.LoginFailed(ctx, r, in.Email)
		respond.Message(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		h.Log.Error("login: authenticate", zap.Error(err))
		respond.Message(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.Log.Error("login: save session", zap.Error(err))
		respond.Message(w, http.StatusInternalServerError, "Could not start session")
		return
	}
	h.Limiter.Succeeded(in.Email)
	h.Audit.LoginSuccess(ctx, r, u.ID, u.Email)

	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()))
	respond.OK(w, map[string]any{"user": viewOf(u)})
}

// HandleLogout handles POST /auth/logout. It always succeeds; a missing or
// undecodable session still gets an expiring cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.Audit.Logout(r.Context(), r, u.ID)
	}
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	respond.NoContent(w)
}

// ServeMe handles GET /auth/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Message(w, http.StatusUnauthorized, "Sign in required")
		return
	}
	respond.OK(w, map[string]any{"user": userView{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}})
}
