// Package notify turns queue notifications into side effects: Discord
// announcements in the session's text channel and MQTT state updates for the
// dashboard.
package notify

import (
	"github.com/PancyStudios/PancyMusicGo/pkg/errors"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
)

// Multi fans every notification out to each notifier in order. A panicking
// notifier does not stop the others.
type Multi []queue.Notifier

var _ queue.Notifier = Multi(nil)

func (m Multi) TrackStarted(info queue.SessionInfo, src queue.Source) {
	for _, n := range m {
		func() {
			defer errors.RecoverMiddleware()()
			n.TrackStarted(info, src)
		}()
	}
}

func (m Multi) TrackEnded(info queue.SessionInfo, src queue.Source, reason queue.EndReason) {
	for _, n := range m {
		func() {
			defer errors.RecoverMiddleware()()
			n.TrackEnded(info, src, reason)
		}()
	}
}

func (m Multi) SessionClosed(info queue.SessionInfo, reason queue.CloseReason) {
	for _, n := range m {
		func() {
			defer errors.RecoverMiddleware()()
			n.SessionClosed(info, reason)
		}()
	}
}
