package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/lottery/internal/observability/context"
	userdomain "github.com/smallbiznis/lottery/internal/user/domain"
)

const (
	HeaderUserID     = "X-User-Id"
	contextUserIDKey = "user_id"
)

// UserRequired resolves the caller from X-User-Id. Authentication happens upstream.
func (s *Server) UserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := userdomain.ParseID(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) (snowflake.ID, bool) {
	value, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := value.(snowflake.ID)
	return id, ok && id != 0
}

// tagDraw records the activity and batch a request touched so the request
// log line and server span carry them. Empty values are skipped.
func tagDraw(c *gin.Context, activityID, batchID string) {
	ctx := obscontext.WithActivityID(c.Request.Context(), activityID)
	ctx = obscontext.WithBatchID(ctx, batchID)
	c.Request = c.Request.WithContext(ctx)
}
