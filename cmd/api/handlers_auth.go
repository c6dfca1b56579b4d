package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/talkingpet/backend/internal/auth"
	"github.com/talkingpet/backend/internal/user"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// registerHandler godoc
// @Summary Register a customer account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body registerRequest true "account data"
// @Success 201 {object} authResponse
// @Failure 409 {object} map[string]string
// @Router /auth/register [post]
func registerHandler(repo user.Repository, issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload: "+err.Error())
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		u := &user.User{
			ID:           uuid.NewString(),
			Name:         req.Name,
			Email:        req.Email,
			Phone:        req.Phone,
			PasswordHash: hash,
			Role:         auth.RoleCustomer,
			Active:       true,
			Balance:      "0",
		}
		if err := repo.Create(c.Request.Context(), u); err != nil {
			if errors.Is(err, user.ErrAlreadyExist) {
				fail(c, http.StatusConflict, "email already registered")
				return
			}
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		token, err := issuer.Issue(u.ID, u.Role, u.Email)
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		u.PasswordHash = ""
		c.JSON(http.StatusCreated, authResponse{Token: token, User: u})
	}
}

// loginHandler godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "credentials"
// @Success 200 {object} authResponse
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func loginHandler(repo user.Repository, issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload")
			return
		}
		u, err := repo.GetByEmail(c.Request.Context(), req.Email)
		if err != nil || !u.Active || !auth.CheckPassword(u.PasswordHash, req.Password) {
			fail(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		token, err := issuer.Issue(u.ID, u.Role, u.Email)
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		u.PasswordHash = ""
		c.JSON(http.StatusOK, authResponse{Token: token, User: u})
	}
}

// meHandler godoc
// @Summary Current user profile, wallet balance included
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} user.User
// @Router /auth/me [get]
func meHandler(repo user.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := repo.GetByID(c.Request.Context(), auth.UserID(c))
		if err != nil {
			fail(c, http.StatusNotFound, "user not found")
			return
		}
		u.PasswordHash = ""
		c.JSON(http.StatusOK, u)
	}
}
