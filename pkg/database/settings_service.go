package database

import (
	"errors"

	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

var ErrSettingsManagerNotInitialized = errors.New("settings data manager not initialized")

func getSettingsManager() (Store[models.GuildMusicSettings], error) {
	if GlobalSettingsDM == nil {
		return nil, ErrSettingsManagerNotInitialized
	}
	return GlobalSettingsDM, nil
}

// GetGuildSettings returns the guild's settings. Missing settings, or a
// database that cannot answer, yield the zero settings.
func GetGuildSettings(guildID string) models.GuildMusicSettings {
	out := models.GuildMusicSettings{GuildID: guildID}
	dm, err := getSettingsManager()
	if err != nil {
		return out
	}
	settings, err := dm.Get(bson.M{"guildId": guildID})
	if err != nil || settings == nil {
		return out
	}
	return *settings
}

func updateSettings(guildID string, mutate func(*models.GuildMusicSettings)) error {
	dm, err := getSettingsManager()
	if err != nil {
		return err
	}
	settings := GetGuildSettings(guildID)
	mutate(&settings)
	_, err = dm.Set(bson.M{"guildId": guildID}, settings)
	return err
}

// SetDJOnly toggles the DJ requirement for /play
func SetDJOnly(guildID string, enabled bool) error {
	return updateSettings(guildID, func(s *models.GuildMusicSettings) { s.DJOnly = enabled })
}

// SetDefaultVolume stores the volume percentage used for new sessions
func SetDefaultVolume(guildID string, volume int) error {
	volume = min(max(volume, 0), 100)
	return updateSettings(guildID, func(s *models.GuildMusicSettings) { s.DefaultVolume = volume })
}
