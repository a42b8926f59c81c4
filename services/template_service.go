// services/template_service.go
package services

import (
	"context"
	"errors"

	"menthub/interfaces"
	"menthub/models"
	"menthub/utils"

	"go.mongodb.org/mongo-driver/mongo"
)

type TemplateService struct {
	templateRepo interfaces.TemplateRepository
	validator    *utils.ValidationService
}

func NewTemplateService(templateRepo interfaces.TemplateRepository) *TemplateService {
	return &TemplateService{
		templateRepo: templateRepo,
		validator:    utils.NewValidationService(),
	}
}

func (ts *TemplateService) CreateTemplate(ctx context.Context, req models.CreateTemplateRequest) (*models.NotificationTemplate, error) {
	if validationErrors := ts.validator.ValidateStruct(req); len(validationErrors) > 0 {
		return nil, utils.NewBadRequestError("invalid template data")
	}

	template := &models.NotificationTemplate{
		Name:     req.Name,
		Type:     req.Type,
		Subtype:  req.Subtype,
		Title:    req.Title,
		Body:     req.Body,
		Data:     req.Data,
		Priority: req.Priority,
		Category: req.Category,
		Channels: req.Channels,
		Settings: req.Settings,
		Locales:  req.Locales,
		IsActive: true,
	}

	if template.Priority == "" {
		template.Priority = models.PriorityNormal
	}
	if template.Category == "" {
		template.Category = template.Type
	}

	if err := ts.templateRepo.Create(ctx, template); err != nil {
		return nil, utils.NewDatabaseError("create template", err)
	}

	return template, nil
}

func (ts *TemplateService) GetTemplate(ctx context.Context, templateID string) (*models.NotificationTemplate, error) {
	template, err := ts.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewTemplateNotFoundError()
		}
		return nil, err
	}

	return template, nil
}

// GetTemplatesByType returns active templates only.
func (ts *TemplateService) GetTemplatesByType(ctx context.Context, notificationType string) ([]models.NotificationTemplate, error) {
	return ts.templateRepo.GetByType(ctx, notificationType)
}

func (ts *TemplateService) UpdateTemplate(ctx context.Context, templateID string, req models.CreateTemplateRequest) (*models.NotificationTemplate, error) {
	template, err := ts.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	template.Name = req.Name
	template.Type = req.Type
	template.Subtype = req.Subtype
	template.Title = req.Title
	template.Body = req.Body
	template.Data = req.Data
	template.Channels = req.Channels
	template.Settings = req.Settings
	template.Locales = req.Locales
	if req.Priority != "" {
		template.Priority = req.Priority
	}
	if req.Category != "" {
		template.Category = req.Category
	}

	// Administrative edits affect only future renders; issued notifications
	// keep their rendered content.
	if err := ts.templateRepo.Update(ctx, template); err != nil {
		return nil, utils.NewDatabaseError("update template", err)
	}

	return template, nil
}

// PreviewTemplate renders a template without creating a notification.
func (ts *TemplateService) PreviewTemplate(ctx context.Context, templateID string, req models.PreviewTemplateRequest) (title, body string, err error) {
	template, err := ts.GetTemplate(ctx, templateID)
	if err != nil {
		return "", "", err
	}

	title, body = RenderTemplate(template, req.Placeholders, req.Locale)
	return title, body, nil
}
