package models

import (
	"fmt"
	"strings"
	"time"
)

// PermLevel is a member's music permission tier inside a guild
type PermLevel int

const (
	PermBlacklisted PermLevel = -1
	PermNone        PermLevel = 0
	PermUser        PermLevel = 1
	PermDJ          PermLevel = 2
	PermAdmin       PermLevel = 3
)

// String returns the tier name shown to users
func (p PermLevel) String() string {
	switch p {
	case PermBlacklisted:
		return "blacklisted"
	case PermNone:
		return "none"
	case PermUser:
		return "user"
	case PermDJ:
		return "dj"
	case PermAdmin:
		return "admin"
	default:
		return fmt.Sprintf("PermLevel(%d)", int(p))
	}
}

// AtLeast reports whether p satisfies the required tier. Blacklisted never
// satisfies anything.
func (p PermLevel) AtLeast(required PermLevel) bool {
	if p == PermBlacklisted {
		return false
	}
	return p >= required
}

// ParsePermLevel parses a tier name as produced by String
func ParsePermLevel(s string) (PermLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blacklisted", "blacklist":
		return PermBlacklisted, nil
	case "none":
		return PermNone, nil
	case "user":
		return PermUser, nil
	case "dj":
		return PermDJ, nil
	case "admin":
		return PermAdmin, nil
	}
	return PermNone, fmt.Errorf("nivel de permiso desconocido: %q", s)
}

// MusicPermission is one member's tier, stored in "music_permissions"
type MusicPermission struct {
	GuildID   string    `bson:"guildId" json:"guildId"`
	UserID    string    `bson:"userId" json:"userId"`
	Level     PermLevel `bson:"level" json:"level"`
	SetBy     string    `bson:"setBy,omitempty" json:"setBy,omitempty"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
