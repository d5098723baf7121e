package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	drawdomain "github.com/smallbiznis/lottery/internal/draw/domain"
)

type drawRequest struct {
	ActivityID string `json:"activity_id"`
	DrawCount  *int   `json:"draw_count"`
}

func (s *Server) Draw(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req drawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	activityID, err := parseRequiredSnowflakeID(req.ActivityID)
	if err != nil {
		AbortWithError(c, newValidationError("activity_id", "invalid_activity_id", "invalid activity_id"))
		return
	}

	tagDraw(c, activityID.String(), "")

	count := 1
	if req.DrawCount != nil {
		count = *req.DrawCount
	}
	if count < 1 {
		AbortWithError(c, newValidationError("draw_count", "invalid_draw_count", "draw_count must be at least 1"))
		return
	}

	resp, err := s.drawSvc.Draw(c.Request.Context(), drawdomain.DrawRequest{
		UserID:     userID,
		ActivityID: activityID,
		DrawCount:  count,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	tagDraw(c, "", resp.BatchID)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemainingDraws(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	activityID, err := parseRequiredSnowflakeID(c.Query("activity_id"))
	if err != nil {
		AbortWithError(c, newValidationError("activity_id", "invalid_activity_id", "invalid activity_id"))
		return
	}
	tagDraw(c, activityID.String(), "")

	resp, err := s.drawSvc.Remaining(c.Request.Context(), userID, activityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query struct {
		ActivityID string `form:"activity_id"`
		Limit      string `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	activityID, err := parseOptionalSnowflakeID(query.ActivityID)
	if err != nil {
		AbortWithError(c, newValidationError("activity_id", "invalid_activity_id", "invalid activity_id"))
		return
	}

	limit, err := parseOptionalInt(strings.TrimSpace(query.Limit))
	if err != nil || (limit != nil && *limit < 0) {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	if activityID != nil {
		tagDraw(c, activityID.String(), "")
	}

	req := drawdomain.HistoryRequest{
		UserID:     userID,
		ActivityID: activityID,
	}
	if limit != nil {
		req.Limit = *limit
	}

	items, err := s.drawSvc.History(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if items == nil {
		items = []drawdomain.HistoryItem{}
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetBatch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	batchID := strings.TrimSpace(c.Param("batch_id"))
	if batchID == "" {
		AbortWithError(c, newValidationError("batch_id", "invalid_batch_id", "invalid batch_id"))
		return
	}
	tagDraw(c, "", batchID)

	items, err := s.drawSvc.Batch(c.Request.Context(), userID, batchID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if len(items) == 0 {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
