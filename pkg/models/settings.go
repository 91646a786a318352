package models

// GuildMusicSettings holds per-guild playback settings, stored in
// "music_settings"
type GuildMusicSettings struct {
	GuildID string `bson:"guildId" json:"guildId"`
	// DJOnly extends the DJ requirement to /play
	DJOnly bool `bson:"djOnly" json:"djOnly"`
	// DefaultVolume is a percentage applied when a session starts; 0 means
	// use the bot default
	DefaultVolume int `bson:"defaultVolume,omitempty" json:"defaultVolume,omitempty"`
}
