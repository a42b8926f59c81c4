package controllers

import (
	"time"

	"menthub/models"
	"menthub/services"
	"menthub/utils"
	"menthub/workers"

	"github.com/gin-gonic/gin"
)

type CampaignController struct {
	campaignService *services.CampaignService
	campaignWorker  *workers.CampaignWorker
	validator       *utils.ValidationService
}

func NewCampaignController(campaignService *services.CampaignService, campaignWorker *workers.CampaignWorker) *CampaignController {
	return &CampaignController{
		campaignService: campaignService,
		campaignWorker:  campaignWorker,
		validator:       utils.NewValidationService(),
	}
}

func (cc *CampaignController) CreateBatch(c *gin.Context) {
	var req models.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if validationErrors := cc.validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	batch, err := cc.campaignService.CreateBatch(c.Request.Context(), req, utils.GetUserID(c))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Campaign batch created", batch)
}

// GetBatch returns the batch with its live progress counters.
func (cc *CampaignController) GetBatch(c *gin.Context) {
	batch, err := cc.campaignService.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Campaign batch retrieved", batch)
}

func (cc *CampaignController) ScheduleBatch(c *gin.Context) {
	var req struct {
		ScheduledFor time.Time `json:"scheduledFor" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "scheduledFor is required")
		return
	}

	batch, err := cc.campaignService.ScheduleBatch(c.Request.Context(), c.Param("id"), req.ScheduledFor)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Campaign batch scheduled", batch)
}

// SendBatch starts an immediate run in the background.
func (cc *CampaignController) SendBatch(c *gin.Context) {
	batchID := c.Param("id")
	batch, err := cc.campaignService.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	if models.TerminalBatchStatus(batch.Status) || batch.Status == models.BatchStatusSending {
		utils.ConflictResponse(c, "Campaign batch is not runnable")
		return
	}

	cc.campaignWorker.RunAsync(batchID)

	utils.AcceptedResponse(c, "Campaign run started", gin.H{"batchId": batchID})
}

func (cc *CampaignController) CancelBatch(c *gin.Context) {
	batch, err := cc.campaignService.CancelBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Campaign batch cancelled", batch)
}
