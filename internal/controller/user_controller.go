package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-api/internal/dto"
	"storefront-api/internal/middleware"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
	"storefront-api/internal/service"
)

type UserController struct {
	Service *service.UserService
	log     *slog.Logger
}

func NewUserController(s *service.UserService, log *slog.Logger) *UserController {
	return &UserController{Service: s, log: log}
}

func clientInfo(c *gin.Context) service.ClientInfo {
	return service.ClientInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// POST /signup
func (ctl *UserController) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !bind(c, &req) {
		return
	}
	res, err := ctl.Service.Signup(c.Request.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.Role(req.Role),
		Secret:   req.Secret(),
	})
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// POST /login
func (ctl *UserController) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bind(c, &req) {
		return
	}
	res, err := ctl.Service.Login(c.Request.Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /admin/login
func (ctl *UserController) AdminLogin(c *gin.Context) {
	var req dto.LoginRequest
	if !bind(c, &req) {
		return
	}
	res, err := ctl.Service.AdminLogin(c.Request.Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /profile
func (ctl *UserController) Profile(c *gin.Context) {
	u, err := ctl.Service.Profile(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// PUT /profile (JSON, or multipart with the picture in "profileImage")
func (ctl *UserController) UpdateProfile(c *gin.Context) {
	var req dto.ProfileRequest
	if !bind(c, &req) {
		return
	}
	image, err := formImage(c, "profileImage")
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	u, err := ctl.Service.UpdateProfile(c.Request.Context(), middleware.Actor(c), service.ProfileInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}, image)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// DELETE /profile
func (ctl *UserController) DeleteAccount(c *gin.Context) {
	if err := ctl.Service.DeleteAccount(c.Request.Context(), middleware.Actor(c)); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

// PUT /profile/password
func (ctl *UserController) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := ctl.Service.ChangePassword(c.Request.Context(), middleware.Actor(c), req.OldPassword, req.NewPassword); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// POST /forgot-password
func (ctl *UserController) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := ctl.Service.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reset link sent to your email"})
}

// POST /reset-password
func (ctl *UserController) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := ctl.Service.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// GET /admin/stats
func (ctl *UserController) AdminStats(c *gin.Context) {
	st, err := ctl.Service.AdminStats(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GET /admin/user-stats
func (ctl *UserController) UserStats(c *gin.Context) {
	st, err := ctl.Service.UserStats(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GET /admin/users
func (ctl *UserController) List(c *gin.Context) {
	var q dto.UserListQuery
	if !bindQuery(c, &q) {
		return
	}
	users, err := ctl.Service.ListUsers(c.Request.Context(), middleware.Actor(c), repository.UserFilter{Active: q.Active})
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GET /admin/users/:id
func (ctl *UserController) Get(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	u, err := ctl.Service.GetUser(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// PUT /admin/users/:id
func (ctl *UserController) Update(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	var req dto.AdminUserUpdateRequest
	if !bind(c, &req) {
		return
	}
	u, err := ctl.Service.UpdateUser(c.Request.Context(), middleware.Actor(c), id, req.Name, req.Email)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// DELETE /admin/users/:id
func (ctl *UserController) Delete(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	if err := ctl.Service.DeleteUser(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// PUT /admin/users/:id/role replaces the role set.
func (ctl *UserController) SetRole(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	var req dto.RoleRequest
	if !bind(c, &req) {
		return
	}
	u, err := ctl.Service.SetRole(c.Request.Context(), middleware.Actor(c), id, model.Role(req.Role))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// POST /admin/users/:id/roles adds to the role set.
func (ctl *UserController) GrantRoles(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	var req dto.RolesRequest
	if !bind(c, &req) {
		return
	}
	u, err := ctl.Service.GrantRoles(c.Request.Context(), middleware.Actor(c), id, req.Roles)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// GET /admin/users/:id/roles
func (ctl *UserController) Roles(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	roles, err := ctl.Service.Roles(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

// PUT /admin/users/:id/reset-password
func (ctl *UserController) AdminResetPassword(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	var req dto.AdminResetPasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := ctl.Service.AdminResetPassword(c.Request.Context(), middleware.Actor(c), id, req.NewPassword); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset"})
}

// PUT /admin/users/:id/verify-email
func (ctl *UserController) VerifyEmail(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	u, err := ctl.Service.VerifyEmail(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// SetLocked serves PUT /admin/users/:id/lock and /unlock.
func (ctl *UserController) SetLocked(locked bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectID(c, "id")
		if !ok {
			return
		}
		u, err := ctl.Service.SetLocked(c.Request.Context(), middleware.Actor(c), id, locked)
		if err != nil {
			respondError(c, ctl.log, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// GET /admin/users/:id/logs
func (ctl *UserController) ActivityLogs(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	logs, err := ctl.Service.ActivityLogs(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	if logs == nil {
		logs = []model.ActivityLog{}
	}
	c.JSON(http.StatusOK, logs)
}
