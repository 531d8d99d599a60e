package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/application/collection"
	"github.com/khoahotran/profile-editor/internal/application/session"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/auth"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

const (
	GinContextKeyOwnerID   = "ownerID"
	GinContextKeySessionID = "sessionID"
	GinContextKeyWorkspace = "workspace"
)

// SessionLookup resolves the workspace bound to a token's session id.
type SessionLookup interface {
	Get(sessionID string) (*session.Workspace, bool)
}

func AuthMiddleware(jwtSvc *auth.JWTService, sessions SessionLookup, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}

		claims, err := jwtSvc.ValidateToken(tokenString)
		if err != nil {
			log.Debug("Rejected token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		ws, ok := sessions.Get(claims.SessionID())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session is no longer active"})
			return
		}
		if id := ws.Session.Current(); id == nil || id.UserID != claims.OwnerID.String() {
			log.Warn("Token owner does not match session", zap.String("session_id", claims.SessionID()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session is no longer active"})
			return
		}

		c.Set(GinContextKeyOwnerID, claims.OwnerID)
		c.Set(GinContextKeySessionID, claims.SessionID())
		c.Set(GinContextKeyWorkspace, ws)

		c.Next()
	}
}

// ErrorMiddleware renders the last error attached with c.Error.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var appErr *apperror.AppError
		switch {
		case errors.As(err, &appErr):
			status := apperror.ToHTTPStatus(appErr)
			if status >= http.StatusInternalServerError {
				log.Error("Request failed", err, zap.String("path", c.FullPath()))
			}
			body := appErr.ToJSON()
			if errors.Is(appErr, apperror.ErrInvalidInput) || errors.Is(appErr, apperror.ErrConfirmationRequired) {
				body["details"] = appErr.Details
			}
			c.JSON(status, body)
		case errors.Is(err, collection.ErrSuperseded):
			c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": "Your session changed while the request was running"})
		default:
			log.Error("Unhandled request error", err, zap.String("path", c.FullPath()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": apperror.ErrInternal.Error()})
		}
	}
}

func GetOwnerIDFromGinContext(c *gin.Context) (uuid.UUID, bool) {
	ownerID, ok := c.Get(GinContextKeyOwnerID)
	if !ok {
		return uuid.Nil, false
	}
	ownerIDUUID, ok := ownerID.(uuid.UUID)
	if !ok {
		return uuid.Nil, false
	}
	return ownerIDUUID, true
}

func GetSessionIDFromGinContext(c *gin.Context) (string, bool) {
	return c.GetString(GinContextKeySessionID), c.GetString(GinContextKeySessionID) != ""
}

func GetWorkspaceFromGinContext(c *gin.Context) (*session.Workspace, bool) {
	v, ok := c.Get(GinContextKeyWorkspace)
	if !ok {
		return nil, false
	}
	ws, ok := v.(*session.Workspace)
	return ws, ok && ws != nil
}
