package controllers

import (
	"menthub/models"
	"menthub/services"
	"menthub/utils"

	"github.com/gin-gonic/gin"
)

type TemplateController struct {
	templateService *services.TemplateService
}

func NewTemplateController(templateService *services.TemplateService) *TemplateController {
	return &TemplateController{templateService: templateService}
}

func (tc *TemplateController) CreateTemplate(c *gin.Context) {
	var req models.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	template, err := tc.templateService.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Template created", template)
}

func (tc *TemplateController) GetTemplate(c *gin.Context) {
	template, err := tc.templateService.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Template retrieved", template)
}

func (tc *TemplateController) GetTemplatesByType(c *gin.Context) {
	notificationType := c.Query("type")
	if notificationType == "" {
		utils.BadRequestResponse(c, "type query parameter is required")
		return
	}

	templates, err := tc.templateService.GetTemplatesByType(c.Request.Context(), notificationType)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Templates retrieved", templates)
}

func (tc *TemplateController) UpdateTemplate(c *gin.Context) {
	var req models.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	template, err := tc.templateService.UpdateTemplate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Template updated", template)
}

// PreviewTemplate renders a template against supplied placeholders
// without creating anything.
func (tc *TemplateController) PreviewTemplate(c *gin.Context) {
	var req models.PreviewTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	title, body, err := tc.templateService.PreviewTemplate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Template preview rendered", gin.H{
		"title": title,
		"body":  body,
	})
}
