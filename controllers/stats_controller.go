package controllers

import (
	"time"

	"menthub/services"
	"menthub/utils"

	"github.com/gin-gonic/gin"
)

type StatsController struct {
	statsService *services.StatsService
}

func NewStatsController(statsService *services.StatsService) *StatsController {
	return &StatsController{statsService: statsService}
}

// GetMyStats aggregates the caller's own notifications.
func (sc *StatsController) GetMyStats(c *gin.Context) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	start, end := parsePeriod(c)
	stats := sc.statsService.GetStats(c.Request.Context(), userID, start, end)

	utils.SuccessResponse(c, "Stats retrieved", stats)
}

// GetGlobalStats aggregates across all recipients. Admin only.
func (sc *StatsController) GetGlobalStats(c *gin.Context) {
	start, end := parsePeriod(c)
	stats := sc.statsService.GetStats(c.Request.Context(), "", start, end)

	utils.SuccessResponse(c, "Stats retrieved", stats)
}

func parsePeriod(c *gin.Context) (*time.Time, *time.Time) {
	var start, end *time.Time
	if value := c.Query("start"); value != "" {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			start = &t
		}
	}
	if value := c.Query("end"); value != "" {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			end = &t
		}
	}
	return start, end
}
