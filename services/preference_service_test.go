package services

import (
	"context"
	"testing"
	"time"

	"menthub/models"
	"menthub/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"
)

func fixedClock(t time.Time) utils.Clock {
	return utils.FixedClock{Instant: t}
}

func TestResolveMaterializesDefaultsOnFirstAccess(t *testing.T) {
	repo := new(mockPreferenceRepo)
	repo.On("GetByUserAndType", mock.Anything, "user-1", models.NotificationTypeMessage).
		Return(nil, mongo.ErrNoDocuments).Once()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *models.NotificationPreference) bool {
		return p.UserID == "user-1" &&
			p.Type == models.NotificationTypeMessage &&
			p.Channels.Push && p.Channels.Email && p.Channels.InApp && !p.Channels.SMS &&
			p.Frequency == models.FrequencyImmediate &&
			p.QuietHours.Enabled
	})).Return(nil).Once()

	// Noon UTC, outside the default 22:00-08:00 window.
	ps := NewPreferenceService(repo, fixedClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)))

	resolution, err := ps.Resolve(context.Background(), "user-1", models.NotificationTypeMessage, "")
	assert.NoError(t, err)
	assert.True(t, resolution.Channels.Push)
	assert.False(t, resolution.Channels.SMS)
	assert.False(t, resolution.QuietNow)
	repo.AssertExpectations(t)
}

func TestResolveUsesStoredRow(t *testing.T) {
	stored := &models.NotificationPreference{
		UserID:    "user-1",
		Type:      models.NotificationTypeMessage,
		Channels:  models.NotificationChannels{Email: true},
		Frequency: models.FrequencyDaily,
	}

	repo := new(mockPreferenceRepo)
	repo.On("GetByUserAndType", mock.Anything, "user-1", models.NotificationTypeMessage).
		Return(stored, nil).Once()

	ps := NewPreferenceService(repo, fixedClock(time.Now()))

	resolution, err := ps.Resolve(context.Background(), "user-1", models.NotificationTypeMessage, "")
	assert.NoError(t, err)
	assert.False(t, resolution.Channels.Push)
	assert.True(t, resolution.Channels.Email)
	assert.Equal(t, models.FrequencyDaily, resolution.Frequency)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestResolveQuietHoursWraparound(t *testing.T) {
	stored := &models.NotificationPreference{
		UserID:   "user-1",
		Type:     models.NotificationTypeMessage,
		Channels: models.NotificationChannels{Push: true},
		QuietHours: models.QuietHours{
			Enabled:   true,
			StartTime: "22:00",
			EndTime:   "08:00",
			Timezone:  "UTC",
		},
	}

	repo := new(mockPreferenceRepo)
	repo.On("GetByUserAndType", mock.Anything, "user-1", models.NotificationTypeMessage).Return(stored, nil)

	cases := []struct {
		hour, minute int
		quiet        bool
	}{
		{23, 30, true},
		{3, 0, true},
		{7, 59, true},
		{8, 0, false},
		{12, 0, false},
		{21, 59, false},
		{22, 0, true},
	}

	for _, tc := range cases {
		ps := NewPreferenceService(repo, fixedClock(time.Date(2026, 3, 10, tc.hour, tc.minute, 0, 0, time.UTC)))
		resolution, err := ps.Resolve(context.Background(), "user-1", models.NotificationTypeMessage, "")
		assert.NoError(t, err)
		assert.Equalf(t, tc.quiet, resolution.QuietNow, "at %02d:%02d", tc.hour, tc.minute)
	}
}

func TestInQuietHoursRespectsTimezone(t *testing.T) {
	ps := NewPreferenceService(new(mockPreferenceRepo), fixedClock(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)))

	// 23:00 UTC is 18:00 in New York, outside a 22:00-08:00 window there.
	quiet := ps.InQuietHours(models.QuietHours{
		Enabled:   true,
		StartTime: "22:00",
		EndTime:   "08:00",
		Timezone:  "America/New_York",
	})
	assert.False(t, quiet)

	quiet = ps.InQuietHours(models.QuietHours{
		Enabled:   true,
		StartTime: "22:00",
		EndTime:   "08:00",
		Timezone:  "UTC",
	})
	assert.True(t, quiet)
}

func TestInQuietHoursDisabled(t *testing.T) {
	ps := NewPreferenceService(new(mockPreferenceRepo), fixedClock(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)))

	quiet := ps.InQuietHours(models.QuietHours{
		Enabled:   false,
		StartTime: "22:00",
		EndTime:   "08:00",
		Timezone:  "UTC",
	})
	assert.False(t, quiet)
}

func TestDefaultPreferencePerType(t *testing.T) {
	session := DefaultPreference("u", models.NotificationTypeSession)
	assert.True(t, session.Channels.SMS)
	assert.False(t, session.QuietHours.Enabled)

	community := DefaultPreference("u", models.NotificationTypeCommunity)
	assert.True(t, community.Channels.Push)
	assert.True(t, community.Channels.InApp)
	assert.False(t, community.Channels.Email)
	assert.Equal(t, models.FrequencyHourly, community.Frequency)
	assert.True(t, community.QuietHours.Enabled)

	system := DefaultPreference("u", models.NotificationTypeSystem)
	assert.False(t, system.Channels.SMS)
	assert.False(t, system.QuietHours.Enabled)

	// Unlisted types inherit the message defaults.
	other := DefaultPreference("u", models.NotificationTypeMarketing)
	assert.Equal(t, DefaultPreference("u", models.NotificationTypeMessage).Channels, other.Channels)
}

func TestUpdateUserPreferencesRejectsBadFrequency(t *testing.T) {
	repo := new(mockPreferenceRepo)
	repo.On("GetByUserAndType", mock.Anything, "user-1", models.NotificationTypeMessage).
		Return(nil, mongo.ErrNoDocuments).Once()

	ps := NewPreferenceService(repo, fixedClock(time.Now()))

	bad := "sometimes"
	_, err := ps.UpdateUserPreferences(context.Background(), "user-1", models.UpdatePreferencesRequest{
		Type:      models.NotificationTypeMessage,
		Frequency: &bad,
	})
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateUserPreferencesPersistsChanges(t *testing.T) {
	repo := new(mockPreferenceRepo)
	repo.On("GetByUserAndType", mock.Anything, "user-1", models.NotificationTypeMessage).
		Return(nil, mongo.ErrNoDocuments).Once()
	repo.On("Update", mock.Anything, mock.MatchedBy(func(p *models.NotificationPreference) bool {
		return p.Frequency == models.FrequencyWeekly && !p.Channels.Push && p.Channels.SMS
	})).Return(nil).Once()

	ps := NewPreferenceService(repo, fixedClock(time.Now()))

	weekly := models.FrequencyWeekly
	updated, err := ps.UpdateUserPreferences(context.Background(), "user-1", models.UpdatePreferencesRequest{
		Type:      models.NotificationTypeMessage,
		Channels:  &models.NotificationChannels{SMS: true},
		Frequency: &weekly,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.FrequencyWeekly, updated.Frequency)
	repo.AssertExpectations(t)
}
