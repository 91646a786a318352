package web

import (
	"net/http"

	"github.com/PancyStudios/PancyMusicGo/pkg/notify"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/gin-gonic/gin"
)

// Sessions is the read side of the queue registry
type Sessions interface {
	Get(guildID string) *queue.GuildQueue
	Guilds() []string
}

// DatabaseStatus reports the Mongo connection state
type DatabaseStatus interface {
	GetStatus() (string, bool)
}

// BotStatus reports the Discord connection state
type BotStatus interface {
	IsReady() bool
	GuildCount() int
}

// API holds what the routes read from. Nil fields report as offline.
type API struct {
	Sessions Sessions
	Database DatabaseStatus
	Bot      BotStatus
}

// guildSummary is one row of /api/music/guilds
type guildSummary struct {
	GuildID      string `json:"guildId"`
	IsPlaying    bool   `json:"isPlaying"`
	IsPaused     bool   `json:"isPaused"`
	CurrentTitle string `json:"currentTitle,omitempty"`
	QueueLength  int    `json:"queueLength"`
}

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, api *API) {
	group := s.Group("/api")
	{
		group.GET("/status", api.statusHandler)
		group.GET("/health", healthHandler)

		music := group.Group("/music")
		music.GET("/guilds", api.guildsHandler)
		music.GET("/guilds/:guildId/queue", api.queueHandler)
	}
}

// statusHandler returns the bot and database status
func (api *API) statusHandler(c *gin.Context) {
	dbStatus, dbOnline := "🔴 | Desconectado", false
	if api.Database != nil {
		dbStatus, dbOnline = api.Database.GetStatus()
	}

	botOnline, guilds := false, 0
	if api.Bot != nil {
		botOnline = api.Bot.IsReady()
		guilds = api.Bot.GuildCount()
	}

	sessions := 0
	if api.Sessions != nil {
		sessions = len(api.Sessions.Guilds())
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"bot": gin.H{
			"isOnline": botOnline,
			"guilds":   guilds,
		},
		"music": gin.H{
			"activeSessions": sessions,
		},
	})
}

// healthHandler returns a simple health check response
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "PancyMusic Go is running",
	})
}

// guildsHandler lists the guilds with an active voice session
func (api *API) guildsHandler(c *gin.Context) {
	out := []guildSummary{}
	if api.Sessions != nil {
		for _, id := range api.Sessions.Guilds() {
			state := notify.Snapshot(id, api.Sessions.Get(id))
			row := guildSummary{
				GuildID:     id,
				IsPlaying:   state.IsPlaying,
				IsPaused:    state.IsPaused,
				QueueLength: len(state.Queue),
			}
			if state.CurrentTrack != nil {
				row.CurrentTitle = state.CurrentTrack.Title
			}
			out = append(out, row)
		}
	}
	c.JSON(http.StatusOK, gin.H{"guilds": out})
}

// queueHandler returns the full state of one guild's queue
func (api *API) queueHandler(c *gin.Context) {
	guildID := c.Param("guildId")

	var q *queue.GuildQueue
	if api.Sessions != nil {
		q = api.Sessions.Get(guildID)
	}
	if q == nil {
		errorJSON(c, http.StatusNotFound, "No hay una sesión de música activa en ese servidor.")
		return
	}

	c.JSON(http.StatusOK, notify.Snapshot(guildID, q))
}
