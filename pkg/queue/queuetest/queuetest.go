// Package queuetest provides an in-memory Driver and Resolver for tests of
// packages built on top of the queue engine.
package queuetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/google/uuid"
)

// Handle is a playback started by Driver.
type Handle struct {
	ID       uuid.UUID
	Title    string
	Prepared bool
}

func (h *Handle) TrackID() uuid.UUID { return h.ID }

// Driver records calls and never talks to a voice server. Stop emits
// nothing; tests finish a track by dispatching a TrackEnded.
type Driver struct {
	mu        sync.Mutex
	Started   []string
	Stopped   []string
	Joined    map[string]string
	Occupied  int
	positions map[uuid.UUID]time.Duration
}

var _ queue.Driver = (*Driver)(nil)

func NewDriver() *Driver {
	return &Driver{Joined: map[string]string{}, Occupied: 1, positions: map[uuid.UUID]time.Duration{}}
}

func (d *Driver) Join(ctx context.Context, guildID, channelID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Joined[guildID] = channelID
	return nil
}

func (d *Driver) Leave(ctx context.Context, guildID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.Joined, guildID)
	return nil
}

func (d *Driver) Play(ctx context.Context, guildID string, src *queue.Source, opts queue.PlayOptions) (queue.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := &Handle{ID: src.Descriptor.ID, Title: src.Metadata.Title, Prepared: opts.Paused}
	if !opts.Paused {
		d.Started = append(d.Started, h.Title)
	}
	return h, nil
}

func (d *Driver) Pause(ctx context.Context, h queue.Handle) error { return nil }

func (d *Driver) Resume(ctx context.Context, h queue.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if th, ok := h.(*Handle); ok && th.Prepared {
		th.Prepared = false
		d.Started = append(d.Started, th.Title)
	}
	return nil
}

func (d *Driver) Stop(ctx context.Context, h queue.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if th, ok := h.(*Handle); ok {
		d.Stopped = append(d.Stopped, th.Title)
	}
	return nil
}

func (d *Driver) SetVolume(ctx context.Context, h queue.Handle, volume float64) error { return nil }

func (d *Driver) Seek(ctx context.Context, h queue.Handle, position time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.positions[h.TrackID()] = position
	return nil
}

func (d *Driver) Position(h queue.Handle) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.positions[h.TrackID()]
}

func (d *Driver) Occupants(guildID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Occupied, nil
}

// StartedTitles returns a copy of the titles that produced audio, in order.
func (d *Driver) StartedTitles() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Started...)
}

// Resolver resolves every request to a two-minute track titled after the
// request. Requests starting with "fail" return an error.
type Resolver struct{}

var _ queue.Resolver = Resolver{}

func (Resolver) Resolve(ctx context.Context, d queue.TrackDescriptor) (*queue.Source, error) {
	if strings.HasPrefix(d.Request, "fail") {
		return nil, fmt.Errorf("no results for %q", d.Request)
	}
	return &queue.Source{
		Descriptor: d,
		Metadata: queue.Metadata{
			Title:    d.Request,
			Artist:   "Test",
			Duration: 2 * time.Minute,
			URL:      "https://example.com/" + d.Request,
		},
		Payload: "encoded:" + d.Request,
	}, nil
}

// Eventually polls cond until it holds or the timeout passes.
func Eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
