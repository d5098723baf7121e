package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	activitydomain "github.com/smallbiznis/lottery/internal/activity/domain"
)

type activityResponse struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	Status          string          `json:"status"`
	LimitType       string          `json:"limit_type"`
	MaxDrawsPerUser int             `json:"max_draws_per_user"`
	Prizes          []prizeResponse `json:"prizes,omitempty"`
}

type prizeResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	ImageURL       string  `json:"image_url,omitempty"`
	PrizeType      string  `json:"prize_type"`
	TotalStock     int     `json:"total_stock"`
	RemainingStock int     `json:"remaining_stock"`
	Probability    float64 `json:"probability"`
	SortOrder      int     `json:"sort_order"`
}

func (s *Server) ListActivities(c *gin.Context) {
	items, err := s.activitySvc.ListActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]activityResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toActivityResponse(&items[i], false))
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetActivityByID(c *gin.Context) {
	id, err := activitydomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_activity_id", "invalid activity id"))
		return
	}

	item, err := s.activitySvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toActivityResponse(item, true)})
}

func toActivityResponse(a *activitydomain.Activity, withPrizes bool) activityResponse {
	resp := activityResponse{
		ID:              a.ID.String(),
		Code:            a.Code,
		Name:            a.Name,
		Description:     a.Description,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		Status:          string(a.Status),
		LimitType:       string(a.LimitType),
		MaxDrawsPerUser: a.MaxDrawsPerUser,
	}
	if !withPrizes {
		return resp
	}

	resp.Prizes = make([]prizeResponse, 0, len(a.Prizes))
	for _, p := range a.Prizes {
		resp.Prizes = append(resp.Prizes, prizeResponse{
			ID:             p.ID.String(),
			Name:           p.Name,
			Description:    p.Description,
			ImageURL:       p.ImageURL,
			PrizeType:      string(p.PrizeType),
			TotalStock:     p.TotalStock,
			RemainingStock: p.RemainingStock,
			Probability:    p.Probability,
			SortOrder:      p.SortOrder,
		})
	}
	return resp
}
