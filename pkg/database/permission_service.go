package database

import (
	"errors"
	"sort"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

var ErrPermissionManagerNotInitialized = errors.New("permission data manager not initialized")

func getPermissionManager() (Store[models.MusicPermission], error) {
	if GlobalPermissionDM == nil {
		return nil, ErrPermissionManagerNotInitialized
	}
	return GlobalPermissionDM, nil
}

func permissionQuery(guildID, userID string) bson.M {
	return bson.M{"guildId": guildID, "userId": userID}
}

// GetPermLevel returns the member's stored tier, PermNone when nothing is
// stored. On a read error the tier is PermNone along with the error.
func GetPermLevel(guildID, userID string) (models.PermLevel, error) {
	dm, err := getPermissionManager()
	if err != nil {
		return models.PermNone, err
	}
	perm, err := dm.Get(permissionQuery(guildID, userID))
	if err != nil || perm == nil {
		return models.PermNone, err
	}
	return perm.Level, nil
}

// SetPermLevel stores the member's tier. Setting PermNone deletes the row.
func SetPermLevel(guildID, userID string, level models.PermLevel, setBy string) error {
	dm, err := getPermissionManager()
	if err != nil {
		return err
	}
	if level == models.PermNone {
		return dm.Delete(permissionQuery(guildID, userID))
	}
	_, err = dm.Set(permissionQuery(guildID, userID), models.MusicPermission{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		SetBy:     setBy,
		UpdatedAt: time.Now(),
	})
	return err
}

// ListPermissions returns the guild's stored tiers, highest first
func ListPermissions(guildID string) ([]*models.MusicPermission, error) {
	dm, err := getPermissionManager()
	if err != nil {
		return nil, err
	}
	perms, err := dm.GetAll(bson.M{"guildId": guildID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(perms, func(i, j int) bool {
		if perms[i].Level != perms[j].Level {
			return perms[i].Level > perms[j].Level
		}
		return perms[i].UserID < perms[j].UserID
	})
	return perms, nil
}

// DeletePermission removes one member's row, used when they leave the guild
func DeletePermission(guildID, userID string) error {
	dm, err := getPermissionManager()
	if err != nil {
		return err
	}
	return dm.Delete(permissionQuery(guildID, userID))
}

// PurgeGuild removes every permission row and the settings of a guild
func PurgeGuild(guildID string) error {
	var errs []error
	if dm, err := getPermissionManager(); err == nil {
		errs = append(errs, dm.DeleteMany(bson.M{"guildId": guildID}))
	}
	if dm, err := getSettingsManager(); err == nil {
		errs = append(errs, dm.Delete(bson.M{"guildId": guildID}))
	}
	return errors.Join(errs...)
}
