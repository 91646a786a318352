package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/errors"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
)

// Options tunes the sessions created by a Registry.
type Options struct {
	IdleInterval  time.Duration
	IdleThreshold int
}

type session struct {
	queue   *GuildQueue
	monitor *IdleMonitor
	closing atomic.Bool
}

// Registry maps guild ids to their queues. A session exists from Join until
// it is torn down.
type Registry struct {
	driver   Driver
	resolver Resolver
	notifier Notifier
	opts     Options

	mu       sync.RWMutex
	sessions map[string]*session

	// stopped is set by Shutdown; Listen stops dispatching once it is
	dispatchMu  sync.Mutex
	stopped     bool
	dispatching sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry(driver Driver, resolver Resolver, notifier Notifier, opts Options) *Registry {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Registry{
		driver:   driver,
		resolver: resolver,
		notifier: notifier,
		opts:     opts,
		sessions: make(map[string]*session),
	}
}

// Resolver returns the resolver shared by every queue.
func (r *Registry) Resolver() Resolver {
	return r.resolver
}

// Join connects to info.VoiceChannelID and returns the guild's queue,
// creating it on first use. Joining while already connected moves the bot.
func (r *Registry) Join(ctx context.Context, info SessionInfo, volume float64) (*GuildQueue, error) {
	if existing := r.Get(info.GuildID); existing != nil {
		if existing.Closed() {
			return nil, newError("join", info.GuildID, ErrSessionClosed, nil)
		}
		if existing.Info().VoiceChannelID != info.VoiceChannelID {
			if err := r.driver.Join(ctx, info.GuildID, info.VoiceChannelID); err != nil {
				return nil, newError("join", info.GuildID, ErrDriver, err)
			}
			existing.setVoiceChannel(info.VoiceChannelID)
		}
		if info.TextChannelID != "" {
			existing.SetTextChannel(info.TextChannelID)
		}
		return existing, nil
	}

	if err := r.driver.Join(ctx, info.GuildID, info.VoiceChannelID); err != nil {
		return nil, newError("join", info.GuildID, ErrDriver, err)
	}

	r.mu.Lock()
	if s, ok := r.sessions[info.GuildID]; ok {
		r.mu.Unlock()
		return s.queue, nil
	}
	q := NewGuildQueue(info, r.driver, r.resolver, r.notifier, volume)
	s := &session{queue: q}
	s.monitor = newIdleMonitor(info.GuildID, r.opts.IdleInterval, r.opts.IdleThreshold,
		func() bool { return r.idleTick(q) },
		func() { r.teardown(context.Background(), s, CloseIdle, true) },
	)
	r.sessions[info.GuildID] = s
	s.monitor.start()
	r.mu.Unlock()

	logger.Info(fmt.Sprintf("[%s] Sesión de voz creada en el canal %s", info.GuildID, info.VoiceChannelID), "Registry")
	return q, nil
}

// idleTick reports whether the session is idle: nobody but bots in the
// channel, or nothing queued. Failing to count occupants counts as idle.
func (r *Registry) idleTick(q *GuildQueue) bool {
	if q.IsEmpty() {
		return true
	}
	n, err := r.driver.Occupants(q.GuildID())
	if err != nil {
		logger.Debug(fmt.Sprintf("[%s] No se pudieron contar los oyentes: %v", q.GuildID(), err), "IdleMonitor")
		return true
	}
	return n == 0
}

// Get returns the guild's queue or nil.
func (r *Registry) Get(guildID string) *GuildQueue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[guildID]; ok {
		return s.queue
	}
	return nil
}

// Guilds lists the guilds with an active session, sorted.
func (r *Registry) Guilds() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Leave tears the guild's session down at the user's request.
func (r *Registry) Leave(ctx context.Context, guildID string) error {
	if !r.Teardown(ctx, guildID, CloseLeave) {
		return newError("leave", guildID, ErrNotConnected, nil)
	}
	return nil
}

// Teardown destroys the guild's session. It reports false when the guild had
// none.
func (r *Registry) Teardown(ctx context.Context, guildID string, reason CloseReason) bool {
	r.mu.RLock()
	s, ok := r.sessions[guildID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	r.teardown(ctx, s, reason, false)
	return true
}

// teardown runs at most once per session: stop the monitor, stop every
// handle and clear the queue, leave the channel, drop the registry entry and
// finally notify. Losing callers return immediately, so the monitor never
// blocks on a teardown that is waiting for it.
func (r *Registry) teardown(ctx context.Context, s *session, reason CloseReason, fromMonitor bool) {
	if !s.closing.CompareAndSwap(false, true) {
		return
	}
	guildID := s.queue.GuildID()
	info := s.queue.Info()

	if fromMonitor {
		s.monitor.cancel()
	} else {
		s.monitor.cancelAndWait()
	}

	if err := s.queue.Close(ctx); err != nil {
		logger.Warn(fmt.Sprintf("[%s] Error al detener la reproducción: %v", guildID, err), "Registry")
	}
	if err := r.driver.Leave(ctx, guildID); err != nil {
		logger.Error(fmt.Sprintf("[%s] Error al salir del canal de voz: %v", guildID, err), "Registry")
	}

	r.mu.Lock()
	if r.sessions[guildID] == s {
		delete(r.sessions, guildID)
	}
	r.mu.Unlock()

	logger.Info(fmt.Sprintf("[%s] Sesión de voz cerrada (%s)", guildID, reason), "Registry")
	r.notifier.SessionClosed(info, reason)
}

// Dispatch routes a driver event to the guild's continuation. Events for
// guilds without a session are ignored.
func (r *Registry) Dispatch(ctx context.Context, ev TrackEnded) {
	q := r.Get(ev.GuildID)
	if q == nil {
		logger.Debug(fmt.Sprintf("[%s] Evento para una sesión inexistente ignorado", ev.GuildID), "Registry")
		return
	}
	q.HandleTrackEnded(ctx, ev)
}

// Listen dispatches events until ctx is done or the channel closes. Each
// event runs in its own goroutine so a slow resolve in one guild never delays
// another. After Shutdown events are still drained but dropped, so the
// driver never blocks on a full channel.
func (r *Registry) Listen(ctx context.Context, events <-chan TrackEnded) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !r.beginDispatch() {
				logger.Debug(fmt.Sprintf("[%s] Evento descartado durante el apagado", ev.GuildID), "Registry")
				continue
			}
			go func() {
				defer r.dispatching.Done()
				defer errors.RecoverMiddleware()()
				r.Dispatch(ctx, ev)
			}()
		}
	}
}

// beginDispatch counts one in-flight event. It fails once Shutdown started,
// so no Add races the Wait in Shutdown.
func (r *Registry) beginDispatch() bool {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()
	if r.stopped {
		return false
	}
	r.dispatching.Add(1)
	return true
}

// Shutdown stops event dispatch, tears every session down and waits for the
// events already in flight.
func (r *Registry) Shutdown(ctx context.Context) {
	r.dispatchMu.Lock()
	r.stopped = true
	r.dispatchMu.Unlock()

	for _, id := range r.Guilds() {
		r.Teardown(ctx, id, CloseShutdown)
	}
	r.dispatching.Wait()
}
