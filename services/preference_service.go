// services/preference_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"menthub/interfaces"
	"menthub/models"
	"menthub/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// PreferenceResolution is the dispatch gating decision for one
// (recipient, type) pair.
type PreferenceResolution struct {
	Channels  models.NotificationChannels
	QuietNow  bool
	Frequency string
}

type PreferenceService struct {
	preferenceRepo interfaces.PreferenceRepository
	clock          utils.Clock
}

func NewPreferenceService(preferenceRepo interfaces.PreferenceRepository, clock utils.Clock) *PreferenceService {
	return &PreferenceService{
		preferenceRepo: preferenceRepo,
		clock:          clock,
	}
}

// Resolve loads the authoritative preference row for (userID, type),
// materializing and persisting the type default when no row exists yet.
func (ps *PreferenceService) Resolve(ctx context.Context, userID, notificationType, subtype string) (*PreferenceResolution, error) {
	preference, err := ps.preferenceRepo.GetByUserAndType(ctx, userID, notificationType)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		preference = DefaultPreference(userID, notificationType)
		if createErr := ps.preferenceRepo.Create(ctx, preference); createErr != nil {
			// A concurrent resolve may have created the row first; re-read
			// before giving up.
			existing, readErr := ps.preferenceRepo.GetByUserAndType(ctx, userID, notificationType)
			if readErr != nil {
				return nil, createErr
			}
			preference = existing
		}
	}

	// Subtype-scoped rows refine the type row when the subtype matches; a
	// row scoped to a different subtype falls back to the type defaults.
	if preference.Subtype != "" && subtype != "" && preference.Subtype != subtype {
		preference = DefaultPreference(userID, notificationType)
	}

	return &PreferenceResolution{
		Channels:  preference.Channels,
		QuietNow:  ps.InQuietHours(preference.QuietHours),
		Frequency: preference.Frequency,
	}, nil
}

func (ps *PreferenceService) GetUserPreferences(ctx context.Context, userID, notificationType string) (*models.NotificationPreference, error) {
	preference, err := ps.preferenceRepo.GetByUserAndType(ctx, userID, notificationType)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return DefaultPreference(userID, notificationType), nil
		}
		return nil, err
	}

	return preference, nil
}

func (ps *PreferenceService) UpdateUserPreferences(ctx context.Context, userID string, req models.UpdatePreferencesRequest) (*models.NotificationPreference, error) {
	preference, err := ps.preferenceRepo.GetByUserAndType(ctx, userID, req.Type)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		preference = DefaultPreference(userID, req.Type)
	}

	if req.Subtype != "" {
		preference.Subtype = req.Subtype
	}
	if req.Channels != nil {
		preference.Channels = *req.Channels
	}
	if req.Frequency != nil {
		if !models.ValidFrequency(*req.Frequency) {
			return nil, utils.NewBadRequestError(fmt.Sprintf("invalid frequency: %s", *req.Frequency))
		}
		preference.Frequency = *req.Frequency
	}
	if req.QuietHours != nil {
		preference.QuietHours = *req.QuietHours
	}

	if err := ps.preferenceRepo.Update(ctx, preference); err != nil {
		return nil, utils.NewDatabaseError("update preference", err)
	}

	return preference, nil
}

// InQuietHours tests whether the current instant, converted to the stored
// timezone, falls within [startTime, endTime). Windows that cross midnight
// (22:00-08:00) wrap around.
func (ps *PreferenceService) InQuietHours(quietHours models.QuietHours) bool {
	if !quietHours.Enabled {
		return false
	}

	location, err := time.LoadLocation(quietHours.Timezone)
	if err != nil {
		logrus.Warnf("Unknown quiet hours timezone %q, assuming UTC", quietHours.Timezone)
		location = time.UTC
	}

	now := ps.clock.Now().In(location)
	minuteOfDay := now.Hour()*60 + now.Minute()

	start, ok := parseMinuteOfDay(quietHours.StartTime)
	if !ok {
		return false
	}
	end, ok := parseMinuteOfDay(quietHours.EndTime)
	if !ok {
		return false
	}

	if start == end {
		return false
	}
	if start < end {
		return minuteOfDay >= start && minuteOfDay < end
	}
	// Wraparound window.
	return minuteOfDay >= start || minuteOfDay < end
}

func parseMinuteOfDay(value string) (int, bool) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, false
	}
	return parsed.Hour()*60 + parsed.Minute(), true
}

// DefaultPreference materializes the recipient-independent default row for
// a notification type.
func DefaultPreference(userID, notificationType string) *models.NotificationPreference {
	preference := &models.NotificationPreference{
		UserID:    userID,
		Type:      notificationType,
		Frequency: models.FrequencyImmediate,
		QuietHours: models.QuietHours{
			Enabled:   false,
			StartTime: "22:00",
			EndTime:   "08:00",
			Timezone:  "UTC",
		},
	}

	switch notificationType {
	case models.NotificationTypeSession:
		preference.Channels = models.NotificationChannels{Push: true, Email: true, SMS: true, InApp: true}
	case models.NotificationTypeCommunity:
		preference.Channels = models.NotificationChannels{Push: true, InApp: true}
		preference.Frequency = models.FrequencyHourly
		preference.QuietHours.Enabled = true
	case models.NotificationTypeSystem:
		preference.Channels = models.NotificationChannels{Push: true, Email: true, InApp: true}
	default:
		// message and everything unlisted
		preference.Channels = models.NotificationChannels{Push: true, Email: true, InApp: true}
		preference.QuietHours.Enabled = true
	}

	return preference
}
