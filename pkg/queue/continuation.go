package queue

import (
	"context"
	"fmt"

	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
)

// HandleTrackEnded is the only path that advances the queue. It honours an
// event only when it belongs to the handle currently playing the head of the
// queue; anything else is stale and dropped.
//
// A naturally finished track replays when loop is on. Otherwise the head is
// popped and the next track is promoted, or resolved synchronously when no
// prepared handle exists.
func (q *GuildQueue) HandleTrackEnded(ctx context.Context, ev TrackEnded) {
	q.mu.Lock()
	if !q.isCurrentLocked(ev.Handle) {
		q.mu.Unlock()
		logger.Debug(fmt.Sprintf("[%s] Evento de fin obsoleto ignorado (%s)", q.guildID, ev.Reason), "Queue")
		return
	}

	ended := q.currentSrc

	if q.loop && ev.Reason == EndFinished {
		h, err := q.driver.Play(ctx, q.guildID, ended, PlayOptions{Volume: q.effectiveVolumeLocked()})
		if err == nil {
			q.current = h
			q.mu.Unlock()
			logger.Debug(fmt.Sprintf("[%s] Repitiendo %s", q.guildID, ended.Metadata.Title), "Queue")
			return
		}
		logger.Error(fmt.Sprintf("[%s] No se pudo repetir %s: %v", q.guildID, ended.Metadata.Title, err), "Queue")
	}

	q.current, q.currentSrc = nil, nil
	q.pending = q.pending[1:]
	q.paused = false

	started, err := q.advanceLocked(ctx, "continuation")
	info := q.info
	q.mu.Unlock()

	if err != nil {
		logger.Warn(fmt.Sprintf("[%s] %v", q.guildID, err), "Queue")
	}
	q.notifier.TrackEnded(info, *ended, ev.Reason)
	if started != nil {
		q.notifier.TrackStarted(info, *started)
	}
}

func (q *GuildQueue) isCurrentLocked(h Handle) bool {
	if q.closed || h == nil || q.current == nil || len(q.pending) == 0 {
		return false
	}
	return h == q.current && h.TrackID() == q.pending[0].desc.ID
}
