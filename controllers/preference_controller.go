package controllers

import (
	"menthub/models"
	"menthub/services"
	"menthub/utils"

	"github.com/gin-gonic/gin"
)

type PreferenceController struct {
	preferenceService *services.PreferenceService
	validator         *utils.ValidationService
}

func NewPreferenceController(preferenceService *services.PreferenceService) *PreferenceController {
	return &PreferenceController{
		preferenceService: preferenceService,
		validator:         utils.NewValidationService(),
	}
}

// GetPreferences returns the caller's stored preference for a type,
// falling back to the defaults when none was materialized yet.
func (pc *PreferenceController) GetPreferences(c *gin.Context) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	notificationType := c.Query("type")
	if notificationType == "" {
		utils.BadRequestResponse(c, "type query parameter is required")
		return
	}

	preference, err := pc.preferenceService.GetUserPreferences(c.Request.Context(), userID, notificationType)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Preferences retrieved", preference)
}

func (pc *PreferenceController) UpdatePreferences(c *gin.Context) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if validationErrors := pc.validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	preference, err := pc.preferenceService.UpdateUserPreferences(c.Request.Context(), userID, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Preferences updated", preference)
}
