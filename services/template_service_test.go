package services

import (
	"context"
	"testing"

	"menthub/models"
	"menthub/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestCreateTemplateDefaults(t *testing.T) {
	repo := new(mockTemplateRepo)
	service := NewTemplateService(repo)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(tpl *models.NotificationTemplate) bool {
		return tpl.Priority == models.PriorityNormal &&
			tpl.Category == models.NotificationTypeSession &&
			tpl.IsActive
	})).Return(nil).Once()

	template, err := service.CreateTemplate(context.Background(), models.CreateTemplateRequest{
		Name:  "session-reminder",
		Type:  models.NotificationTypeSession,
		Title: "Session with {{mentorName}}",
		Body:  "Starts at {{startTime}}",
	})
	assert.NoError(t, err)
	assert.Equal(t, models.PriorityNormal, template.Priority)
	assert.Equal(t, models.NotificationTypeSession, template.Category)
	repo.AssertExpectations(t)
}

func TestCreateTemplateRejectsInvalid(t *testing.T) {
	repo := new(mockTemplateRepo)
	service := NewTemplateService(repo)

	_, err := service.CreateTemplate(context.Background(), models.CreateTemplateRequest{
		Name: "missing-everything",
	})
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetTemplateNotFound(t *testing.T) {
	repo := new(mockTemplateRepo)
	service := NewTemplateService(repo)
	id := primitive.NewObjectID().Hex()

	repo.On("GetByID", mock.Anything, id).Return(nil, mongo.ErrNoDocuments).Once()

	_, err := service.GetTemplate(context.Background(), id)
	assert.True(t, utils.IsNotFound(err))
}

func TestUpdateTemplateKeepsPriorityWhenOmitted(t *testing.T) {
	repo := new(mockTemplateRepo)
	service := NewTemplateService(repo)
	existing := &models.NotificationTemplate{
		ID:       primitive.NewObjectID(),
		Name:     "old-name",
		Type:     models.NotificationTypeSystem,
		Title:    "Old",
		Body:     "Old body",
		Priority: models.PriorityHigh,
		Category: "system",
		IsActive: true,
	}

	repo.On("GetByID", mock.Anything, existing.ID.Hex()).Return(existing, nil).Once()
	repo.On("Update", mock.Anything, mock.MatchedBy(func(tpl *models.NotificationTemplate) bool {
		return tpl.Name == "new-name" && tpl.Priority == models.PriorityHigh
	})).Return(nil).Once()

	updated, err := service.UpdateTemplate(context.Background(), existing.ID.Hex(), models.CreateTemplateRequest{
		Name:  "new-name",
		Type:  models.NotificationTypeSystem,
		Title: "New",
		Body:  "New body",
	})
	assert.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	repo.AssertExpectations(t)
}

func TestPreviewTemplateRenders(t *testing.T) {
	repo := new(mockTemplateRepo)
	service := NewTemplateService(repo)
	template := &models.NotificationTemplate{
		ID:    primitive.NewObjectID(),
		Name:  "welcome",
		Type:  models.NotificationTypeSystem,
		Title: "Welcome {{name}}",
		Body:  "Glad to have you, {{name}}",
		Locales: map[string]models.LocaleOverride{
			"es": {Title: "Bienvenido {{name}}", Body: "Nos alegra tenerte, {{name}}"},
		},
		IsActive: true,
	}

	repo.On("GetByID", mock.Anything, template.ID.Hex()).Return(template, nil).Twice()

	title, body, err := service.PreviewTemplate(context.Background(), template.ID.Hex(), models.PreviewTemplateRequest{
		Placeholders: map[string]string{"name": "Dana"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "Welcome Dana", title)
	assert.Equal(t, "Glad to have you, Dana", body)

	title, _, err = service.PreviewTemplate(context.Background(), template.ID.Hex(), models.PreviewTemplateRequest{
		Placeholders: map[string]string{"name": "Dana"},
		Locale:       "es",
	})
	assert.NoError(t, err)
	assert.Equal(t, "Bienvenido Dana", title)
}
