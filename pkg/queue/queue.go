package queue

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/errors"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/google/uuid"
)

type entry struct {
	desc TrackDescriptor
	meta *Metadata
}

// GuildQueue holds the requests of one guild and the two playback slots.
//
// pending[0] backs current once it has started and next, when set, is the
// paused handle of pending[1]. All fields are guarded by mu. Resolves always
// run with mu released: lock, mutate, unlock, resolve, lock, install.
type GuildQueue struct {
	guildID  string
	info     SessionInfo
	driver   Driver
	resolver Resolver
	notifier Notifier

	mu         sync.Mutex
	pending    []*entry
	current    Handle
	currentSrc *Source
	next       Handle
	nextSrc    *Source

	// ids of the descriptors being resolved for each slot
	headResolving uuid.UUID
	lookahead     uuid.UUID
	// last pending[1] whose look-ahead failed; not retried until the slot changes
	lookaheadFailed uuid.UUID

	volume float64
	muted  bool
	loop   bool
	paused bool
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGuildQueue creates an empty queue. volume is clamped to 0..1.
func NewGuildQueue(info SessionInfo, driver Driver, resolver Resolver, notifier Notifier, volume float64) *GuildQueue {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &GuildQueue{
		guildID:  info.GuildID,
		info:     info,
		driver:   driver,
		resolver: resolver,
		notifier: notifier,
		volume:   clampVolume(volume),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// GuildID returns the guild this queue belongs to.
func (q *GuildQueue) GuildID() string {
	return q.guildID
}

// Info returns the session the queue is bound to.
func (q *GuildQueue) Info() SessionInfo {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.info
}

// SetTextChannel changes where announcements for this session are sent.
func (q *GuildQueue) SetTextChannel(channelID string) {
	q.mu.Lock()
	q.info.TextChannelID = channelID
	q.mu.Unlock()
}

func (q *GuildQueue) setVoiceChannel(channelID string) {
	q.mu.Lock()
	q.info.VoiceChannelID = channelID
	q.mu.Unlock()
}

// Add appends d. When the queue was empty the track is resolved and started
// before Add returns, and a failure to resolve it is reported here. Otherwise
// the look-ahead slot is filled in the background.
func (q *GuildQueue) Add(ctx context.Context, d TrackDescriptor) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return newError("add", q.guildID, ErrSessionClosed, nil)
	}

	q.pending = append(q.pending, &entry{desc: d})
	logger.Debug(fmt.Sprintf("[%s] Pista añadida %s (%d en cola)", q.guildID, d.Request, len(q.pending)), "Queue")

	if q.current != nil || q.headResolving != uuid.Nil {
		q.prefetchLocked()
		q.mu.Unlock()
		return nil
	}

	started, err := q.advanceLocked(ctx, "add")
	info := q.info
	q.mu.Unlock()

	if started != nil {
		q.notifier.TrackStarted(info, *started)
	}
	return err
}

// AddAll appends every descriptor in order. Only the first failure is returned.
func (q *GuildQueue) AddAll(ctx context.Context, ds []TrackDescriptor) error {
	var first error
	for _, d := range ds {
		if err := q.Add(ctx, d); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// advanceLocked starts pending[0], promoting the prepared next handle when it
// belongs to the head and resolving synchronously otherwise. Entries that fail
// to resolve or play are dropped and the following one is tried. q.mu must be
// held; it is released around each resolve and held again on return.
func (q *GuildQueue) advanceLocked(ctx context.Context, op string) (*Source, error) {
	var firstErr error
	for {
		if q.closed || len(q.pending) == 0 || q.current != nil || q.headResolving != uuid.Nil {
			if len(q.pending) == 0 {
				q.discardNextLocked(ctx)
			}
			return nil, firstErr
		}

		head := q.pending[0]

		if q.next != nil && q.next.TrackID() == head.desc.ID {
			h, src := q.next, q.nextSrc
			q.next, q.nextSrc = nil, nil
			if err := q.driver.Resume(ctx, h); err != nil {
				logger.Error(fmt.Sprintf("[%s] No se pudo iniciar la pista precargada %s: %v", q.guildID, src.Metadata.Title, err), "Queue")
				q.pending = q.pending[1:]
				if firstErr == nil {
					firstErr = newError(op, q.guildID, ErrDriver, err)
				}
				continue
			}
			q.installCurrentLocked(h, src)
			return src, firstErr
		}

		if q.next != nil && (len(q.pending) < 2 || q.next.TrackID() != q.pending[1].desc.ID) {
			q.discardNextLocked(ctx)
		}

		q.headResolving = head.desc.ID
		q.mu.Unlock()
		src, err := q.resolver.Resolve(ctx, head.desc)
		q.mu.Lock()
		q.headResolving = uuid.Nil

		if q.closed {
			return nil, firstErr
		}
		if len(q.pending) == 0 || q.pending[0] != head {
			// the head was removed or replaced while resolving
			continue
		}
		if err != nil {
			logger.Warn(fmt.Sprintf("[%s] Se omitió %q: %v", q.guildID, head.desc.Request, err), "Queue")
			q.pending = q.pending[1:]
			if firstErr == nil {
				firstErr = newError(op, q.guildID, ErrResolutionFailed, err)
			}
			continue
		}

		src.Descriptor = head.desc
		head.meta = &src.Metadata
		h, err := q.driver.Play(ctx, q.guildID, src, PlayOptions{Volume: q.effectiveVolumeLocked()})
		if err != nil {
			logger.Error(fmt.Sprintf("[%s] El reproductor rechazó %s: %v", q.guildID, src.Metadata.Title, err), "Queue")
			q.pending = q.pending[1:]
			if firstErr == nil {
				firstErr = newError(op, q.guildID, ErrDriver, err)
			}
			continue
		}
		q.installCurrentLocked(h, src)
		return src, firstErr
	}
}

func (q *GuildQueue) installCurrentLocked(h Handle, src *Source) {
	q.current, q.currentSrc = h, src
	q.paused = false
	logger.Info(fmt.Sprintf("[%s] Reproduciendo %s", q.guildID, src.Metadata.Title), "Queue")
	q.prefetchLocked()
}

// prefetchLocked starts a background resolve of pending[1] when the next
// slot is empty and no look-ahead is in flight.
func (q *GuildQueue) prefetchLocked() {
	if q.closed || len(q.pending) < 2 || q.next != nil || q.lookahead != uuid.Nil {
		return
	}
	target := q.pending[1]
	if q.lookaheadFailed == target.desc.ID {
		return
	}
	q.lookahead = target.desc.ID
	q.wg.Add(1)
	go q.lookaheadWorker(target)
}

func (q *GuildQueue) lookaheadWorker(target *entry) {
	defer q.wg.Done()
	defer errors.RecoverMiddleware()()

	src, err := q.resolver.Resolve(q.ctx, target.desc)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.lookahead = uuid.Nil
	if q.closed {
		return
	}

	if len(q.pending) < 2 || q.pending[1] != target || q.next != nil {
		// slot 1 changed underneath us
		q.prefetchLocked()
		return
	}
	if err != nil {
		q.lookaheadFailed = target.desc.ID
		logger.Debug(fmt.Sprintf("[%s] Falló la precarga de %q: %v", q.guildID, target.desc.Request, err), "Queue")
		return
	}

	src.Descriptor = target.desc
	target.meta = &src.Metadata
	h, err := q.driver.Play(q.ctx, q.guildID, src, PlayOptions{Paused: true, Volume: q.effectiveVolumeLocked()})
	if err != nil {
		q.lookaheadFailed = target.desc.ID
		logger.Debug(fmt.Sprintf("[%s] El reproductor no pudo preparar %s: %v", q.guildID, src.Metadata.Title, err), "Queue")
		return
	}
	q.next, q.nextSrc = h, src
	logger.Debug(fmt.Sprintf("[%s] Siguiente pista lista: %s", q.guildID, src.Metadata.Title), "Queue")
}

// discardNextLocked stops and forgets the prepared handle.
func (q *GuildQueue) discardNextLocked(ctx context.Context) {
	if q.next == nil {
		return
	}
	if err := q.driver.Stop(ctx, q.next); err != nil {
		logger.Debug(fmt.Sprintf("[%s] No se pudo descartar la pista precargada: %v", q.guildID, err), "Queue")
	}
	q.next, q.nextSrc = nil, nil
}

// Skip stops the current track. The continuation advances the queue once the
// driver reports the end.
func (q *GuildQueue) Skip(ctx context.Context) error {
	return q.skip(ctx, uuid.Nil)
}

// SkipTrack stops the current track only while it is still id. When id has
// already ended the call fails with ErrTrackChanged and nothing is stopped.
func (q *GuildQueue) SkipTrack(ctx context.Context, id uuid.UUID) error {
	return q.skip(ctx, id)
}

func (q *GuildQueue) skip(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	if q.current == nil {
		q.mu.Unlock()
		return newError("skip", q.guildID, ErrNothingPlaying, nil)
	}
	if id != uuid.Nil && q.current.TrackID() != id {
		q.mu.Unlock()
		return newError("skip", q.guildID, ErrTrackChanged, nil)
	}
	h := q.current
	err := q.driver.Stop(ctx, h)
	q.mu.Unlock()

	if err != nil {
		q.HandleTrackEnded(ctx, TrackEnded{GuildID: q.guildID, Handle: h, Reason: EndFailed})
		return newError("skip", q.guildID, ErrDriver, err)
	}
	return nil
}

// Remove drops the entry at index. Index 0 behaves like Skip, index 1 also
// discards the prepared handle.
func (q *GuildQueue) Remove(ctx context.Context, index int) (TrackDescriptor, error) {
	q.mu.Lock()
	if index < 0 || index >= len(q.pending) {
		q.mu.Unlock()
		return TrackDescriptor{}, newError("remove", q.guildID, ErrIndexOutOfRange, fmt.Errorf("índice %d, longitud %d", index, len(q.pending)))
	}
	d := q.pending[index].desc

	switch {
	case index == 0 && q.current != nil:
		h := q.current
		err := q.driver.Stop(ctx, h)
		q.mu.Unlock()
		if err != nil {
			q.HandleTrackEnded(ctx, TrackEnded{GuildID: q.guildID, Handle: h, Reason: EndFailed})
			return d, newError("remove", q.guildID, ErrDriver, err)
		}
		return d, nil
	case index <= 1:
		// head not started yet, or the look-ahead slot
		q.discardNextLocked(ctx)
		q.pending = append(q.pending[:index], q.pending[index+1:]...)
		q.prefetchLocked()
	default:
		q.pending = append(q.pending[:index], q.pending[index+1:]...)
	}
	q.mu.Unlock()
	return d, nil
}

// Stop halts playback and clears every pending request. Calling it on an
// empty queue is a no-op.
func (q *GuildQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	ended, err := q.stopLocked(ctx)
	info := q.info
	q.mu.Unlock()

	if ended != nil {
		q.notifier.TrackEnded(info, *ended, EndStopped)
	}
	return err
}

func (q *GuildQueue) stopLocked(ctx context.Context) (*Source, error) {
	var err error
	if q.next != nil {
		if e := q.driver.Stop(ctx, q.next); e != nil {
			err = newError("stop", q.guildID, ErrDriver, e)
		}
	}
	ended := q.currentSrc
	if q.current != nil {
		if e := q.driver.Stop(ctx, q.current); e != nil && err == nil {
			err = newError("stop", q.guildID, ErrDriver, e)
		}
	}
	q.current, q.currentSrc = nil, nil
	q.next, q.nextSrc = nil, nil
	q.pending = nil
	q.paused = false
	q.lookaheadFailed = uuid.Nil
	return ended, err
}

// Close stops playback, rejects further requests and waits for background
// resolves to finish.
func (q *GuildQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	_, err := q.stopLocked(ctx)
	q.closed = true
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	return err
}

// Closed reports whether the queue has been torn down.
func (q *GuildQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Shuffle reorders everything after the head and re-derives the prepared
// handle.
func (q *GuildQueue) Shuffle(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) < 3 {
		return
	}
	rest := q.pending[1:]
	for i := len(rest) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		rest[i], rest[j] = rest[j], rest[i]
	}

	if q.next != nil && q.next.TrackID() != q.pending[1].desc.ID {
		q.discardNextLocked(ctx)
	}
	q.prefetchLocked()
}

// Pause pauses the current track.
func (q *GuildQueue) Pause(ctx context.Context) error {
	return q.control(ctx, "pause", func(h Handle) error {
		if err := q.driver.Pause(ctx, h); err != nil {
			return err
		}
		q.paused = true
		return nil
	})
}

// Resume resumes the current track.
func (q *GuildQueue) Resume(ctx context.Context) error {
	return q.control(ctx, "resume", func(h Handle) error {
		if err := q.driver.Resume(ctx, h); err != nil {
			return err
		}
		q.paused = false
		return nil
	})
}

// Seek moves the current track to position.
func (q *GuildQueue) Seek(ctx context.Context, position time.Duration) error {
	if position < 0 {
		position = 0
	}
	return q.control(ctx, "seek", func(h Handle) error {
		return q.driver.Seek(ctx, h, position)
	})
}

// control runs fn against the current handle. A driver failure counts as the
// end of the current track.
func (q *GuildQueue) control(ctx context.Context, op string, fn func(h Handle) error) error {
	q.mu.Lock()
	if q.current == nil {
		q.mu.Unlock()
		return newError(op, q.guildID, ErrNothingPlaying, nil)
	}
	h := q.current
	err := fn(h)
	q.mu.Unlock()

	if err != nil {
		q.HandleTrackEnded(ctx, TrackEnded{GuildID: q.guildID, Handle: h, Reason: EndFailed})
		return newError(op, q.guildID, ErrDriver, err)
	}
	return nil
}

// SetVolume stores the volume, clamped to 0..1, and applies it to both
// playback slots unless the queue is muted.
func (q *GuildQueue) SetVolume(ctx context.Context, volume float64) error {
	q.mu.Lock()
	q.volume = clampVolume(volume)
	h, err := q.applyVolumeLocked(ctx)
	q.mu.Unlock()

	if h != nil {
		q.HandleTrackEnded(ctx, TrackEnded{GuildID: q.guildID, Handle: h, Reason: EndFailed})
	}
	if err != nil {
		return newError("volume", q.guildID, ErrDriver, err)
	}
	return nil
}

// Volume returns the stored volume, ignoring mute.
func (q *GuildQueue) Volume() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.volume
}

// SetMuted silences both playback slots without forgetting the volume.
func (q *GuildQueue) SetMuted(ctx context.Context, muted bool) error {
	q.mu.Lock()
	q.muted = muted
	h, err := q.applyVolumeLocked(ctx)
	q.mu.Unlock()

	if h != nil {
		q.HandleTrackEnded(ctx, TrackEnded{GuildID: q.guildID, Handle: h, Reason: EndFailed})
	}
	if err != nil {
		return newError("mute", q.guildID, ErrDriver, err)
	}
	return nil
}

// Muted reports whether the queue is muted.
func (q *GuildQueue) Muted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.muted
}

// applyVolumeLocked pushes the effective volume to the driver. It returns the
// current handle when the driver failed on it.
func (q *GuildQueue) applyVolumeLocked(ctx context.Context) (Handle, error) {
	v := q.effectiveVolumeLocked()
	var failed Handle
	var err error
	if q.current != nil {
		if e := q.driver.SetVolume(ctx, q.current, v); e != nil {
			failed, err = q.current, e
		}
	}
	if q.next != nil {
		if e := q.driver.SetVolume(ctx, q.next, v); e != nil {
			logger.Debug(fmt.Sprintf("[%s] No se pudo ajustar el volumen de la pista precargada: %v", q.guildID, e), "Queue")
			q.discardNextLocked(ctx)
			q.prefetchLocked()
		}
	}
	return failed, err
}

func (q *GuildQueue) effectiveVolumeLocked() float64 {
	if q.muted {
		return 0
	}
	return q.volume
}

// SetLoop makes the current track replay when it finishes on its own.
func (q *GuildQueue) SetLoop(loop bool) {
	q.mu.Lock()
	q.loop = loop
	q.mu.Unlock()
}

// Loop reports whether the current track repeats.
func (q *GuildQueue) Loop() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loop
}

// NowPlaying describes the current track.
func (q *GuildQueue) NowPlaying() (NowPlaying, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.nowPlayingLocked()
}

func (q *GuildQueue) nowPlayingLocked() (NowPlaying, error) {
	if q.current == nil {
		return NowPlaying{}, newError("nowplaying", q.guildID, ErrNothingPlaying, nil)
	}
	return NowPlaying{
		Track:    q.currentSrc.Descriptor,
		Metadata: q.currentSrc.Metadata,
		Position: q.driver.Position(q.current),
		Paused:   q.paused,
		Loop:     q.loop,
		Volume:   q.volume,
		Muted:    q.muted,
	}, nil
}

// Snapshot returns the current track and the pending requests read under one
// lock, so items[0] is always the track in np. np is nil when nothing plays.
func (q *GuildQueue) Snapshot() (*NowPlaying, []QueueItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.itemsLocked()
	np, err := q.nowPlayingLocked()
	if err != nil {
		return nil, items
	}
	return &np, items
}

// CurrentQueue returns a snapshot of the pending requests, head first.
func (q *GuildQueue) CurrentQueue() []QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.itemsLocked()
}

func (q *GuildQueue) itemsLocked() []QueueItem {
	items := make([]QueueItem, 0, len(q.pending))
	for i, e := range q.pending {
		item := QueueItem{
			Position:    i,
			ID:          e.desc.ID,
			Title:       e.desc.Request,
			Request:     e.desc.Request,
			RequestedBy: e.desc.RequestedBy,
		}
		if e.desc.Title != "" {
			item.Title = e.desc.Title
		}
		if e.meta != nil {
			item.Title = e.meta.Title
			item.Duration = e.meta.Duration
			item.Resolved = true
		}
		items = append(items, item)
	}
	return items
}

// IsEmpty reports whether nothing is pending.
func (q *GuildQueue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) == 0
}

// Len returns the number of pending requests, including the one playing.
func (q *GuildQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
