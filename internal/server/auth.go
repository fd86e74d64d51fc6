package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"daybook/internal/auth"
	apperrors "daybook/internal/errors"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleRegister creates an account and starts a session.
func (s *Server) handleRegister(c *gin.Context) {
	var req auth.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.NewValidationError("invalid request body", err))
		return
	}

	user, pair, err := s.auth.Register(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.setSessionCookies(c, pair)
	respondSuccess(c, http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
}

// handleLogin checks credentials and starts a session.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.NewValidationError("email and password are required", err))
		return
	}

	user, pair, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.setSessionCookies(c, pair)
	respondSuccess(c, http.StatusOK, gin.H{"message": "Login successful", "user": user})
}

// handleLogout clears both session cookies.
func (s *Server) handleLogout(c *gin.Context) {
	s.clearSessionCookies(c)
	respondSuccess(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// handleVerifyToken echoes the authenticated identity.
func (s *Server) handleVerifyToken(c *gin.Context) {
	claims := currentClaims(c)
	respondSuccess(c, http.StatusOK, gin.H{
		"message": "Authorized",
		"user": gin.H{
			"id":      claims.UserID(),
			"email":   claims.Email,
			"country": claims.Country,
		},
	})
}
