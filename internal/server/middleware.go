package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"daybook/internal/auth"
	apperrors "daybook/internal/errors"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
	claimsKey     = "claims"
	requestIDKey  = "requestID"
)

// requestLogger tags every request with an id and logs its outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDKey, reqID)
		c.Header("X-Request-Id", reqID)

		c.Next()

		s.logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", reqID),
		)
	}
}

// observe records request counts and latency per route template.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// cors allows the configured frontend origin to call the API with cookies.
func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if s.corsOrigin == "" || origin == "" || origin != s.corsOrigin {
			c.Next()
			return
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requireAuth accepts a valid access token from the cookie or a bearer
// header. When the access token is missing or expired but the refresh cookie
// is valid, a new pair is issued into cookies and the request proceeds.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokens := s.auth.Tokens()

		if raw := accessToken(c); raw != "" {
			if claims, err := tokens.Verify(raw); err == nil {
				c.Set(claimsKey, claims)
				c.Next()
				return
			}
		}

		raw, _ := c.Cookie(refreshCookie)
		refreshed, err := tokens.VerifyRefresh(raw)
		if err != nil {
			s.respondError(c, apperrors.NewUnauthorizedError("authentication required", err))
			return
		}

		pair, err := tokens.Issue(auth.Identity{
			UserID:  refreshed.UserID(),
			Email:   refreshed.Email,
			Country: refreshed.Country,
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		s.setSessionCookies(c, pair)

		claims, err := tokens.Verify(pair.AccessToken)
		if err != nil {
			s.respondError(c, apperrors.NewUnauthorizedError("authentication required", err))
			return
		}
		s.logger.Debug("session refreshed", slog.String("user", claims.UserID()))
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func accessToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	raw, _ := c.Cookie(accessCookie)
	return raw
}

// currentClaims returns the claims stored by requireAuth.
func currentClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func (s *Server) setSessionCookies(c *gin.Context, pair auth.Pair) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessCookie, pair.AccessToken, int(s.auth.Tokens().AccessTTL().Seconds()), "/", "", s.secureCookies, true)
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, pair.RefreshToken, int(s.auth.Tokens().RefreshTTL().Seconds()), "/", "", s.secureCookies, true)
}

func (s *Server) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessCookie, "", -1, "/", "", s.secureCookies, true)
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, "", -1, "/", "", s.secureCookies, true)
}
