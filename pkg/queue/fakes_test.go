package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeHandle struct {
	id       uuid.UUID
	title    string
	prepared bool
}

func (h *fakeHandle) TrackID() uuid.UUID { return h.id }

type fakeDriver struct {
	mu        sync.Mutex
	started   []string
	stopped   []string
	joins     int
	leaves    int
	occupants int
	occErr    error
	stopErr   error
	playErr   map[string]error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{occupants: 1, playErr: map[string]error{}}
}

func (d *fakeDriver) Join(ctx context.Context, guildID, channelID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.joins++
	return nil
}

func (d *fakeDriver) Leave(ctx context.Context, guildID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leaves++
	return nil
}

func (d *fakeDriver) Play(ctx context.Context, guildID string, src *Source, opts PlayOptions) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.playErr[src.Metadata.Title]; err != nil {
		return nil, err
	}
	h := &fakeHandle{id: src.Descriptor.ID, title: src.Metadata.Title, prepared: opts.Paused}
	if !opts.Paused {
		d.started = append(d.started, h.title)
	}
	return h, nil
}

func (d *fakeDriver) Pause(ctx context.Context, h Handle) error { return nil }

func (d *fakeDriver) Resume(ctx context.Context, h Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	fh := h.(*fakeHandle)
	if fh.prepared {
		fh.prepared = false
		d.started = append(d.started, fh.title)
	}
	return nil
}

func (d *fakeDriver) Stop(ctx context.Context, h Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopErr != nil {
		return d.stopErr
	}
	d.stopped = append(d.stopped, h.(*fakeHandle).title)
	return nil
}

func (d *fakeDriver) SetVolume(ctx context.Context, h Handle, volume float64) error { return nil }

func (d *fakeDriver) Seek(ctx context.Context, h Handle, position time.Duration) error { return nil }

func (d *fakeDriver) Position(h Handle) time.Duration { return 42 * time.Second }

func (d *fakeDriver) Occupants(guildID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.occupants, d.occErr
}

func (d *fakeDriver) leaveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leaves
}

func (d *fakeDriver) stoppedTitles() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.stopped...)
}

// fakeResolver names every track after its request. Requests listed in fail
// never resolve.
type fakeResolver struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls map[string]int
}

func newFakeResolver(fail ...string) *fakeResolver {
	r := &fakeResolver{fail: map[string]bool{}, calls: map[string]int{}}
	for _, f := range fail {
		r.fail[f] = true
	}
	return r
}

func (r *fakeResolver) Resolve(ctx context.Context, d TrackDescriptor) (*Source, error) {
	r.mu.Lock()
	r.calls[d.Request]++
	failed := r.fail[d.Request]
	r.mu.Unlock()
	if failed {
		return nil, fmt.Errorf("no results for %q", d.Request)
	}
	return &Source{
		Descriptor: d,
		Metadata:   Metadata{Title: d.Request, Duration: 3 * time.Minute},
		Payload:    "encoded:" + d.Request,
	}, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	started []string
	ended   []string
	closed  []CloseReason
}

func (n *fakeNotifier) TrackStarted(info SessionInfo, track Source) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, track.Metadata.Title)
}

func (n *fakeNotifier) TrackEnded(info SessionInfo, track Source, reason EndReason) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ended = append(n.ended, track.Metadata.Title)
}

func (n *fakeNotifier) SessionClosed(info SessionInfo, reason CloseReason) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, reason)
}

func (n *fakeNotifier) closedReasons() []CloseReason {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]CloseReason(nil), n.closed...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// Helpers reading queue internals under the lock.

func (q *GuildQueue) currentHandle() Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

func (q *GuildQueue) nextTitle() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.nextSrc == nil {
		return ""
	}
	return q.nextSrc.Metadata.Title
}

func (q *GuildQueue) requests() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.pending))
	for i, e := range q.pending {
		out[i] = e.desc.Request
	}
	return out
}

// checkInvariants verifies the slot invariants once resolution has settled.
func checkInvariants(t *testing.T, q *GuildQueue) {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	if (q.current != nil) != (len(q.pending) > 0) {
		t.Errorf("current set = %v with %d pending", q.current != nil, len(q.pending))
	}
	if q.current != nil && q.current.TrackID() != q.pending[0].desc.ID {
		t.Errorf("current does not belong to pending[0]")
	}
	if q.next != nil && (len(q.pending) < 2 || q.next.TrackID() != q.pending[1].desc.ID) {
		t.Errorf("next does not belong to pending[1]")
	}
}

// gatedResolver holds the resolve of each gated request until its gate is
// closed. Every held resolve is announced on entered.
type gatedResolver struct {
	*fakeResolver
	gates   map[string]chan struct{}
	entered chan string
}

func newGatedResolver(gated ...string) *gatedResolver {
	r := &gatedResolver{
		fakeResolver: newFakeResolver(),
		gates:        map[string]chan struct{}{},
		entered:      make(chan string, 8),
	}
	for _, g := range gated {
		r.gates[g] = make(chan struct{})
	}
	return r
}

func (r *gatedResolver) Resolve(ctx context.Context, d TrackDescriptor) (*Source, error) {
	if gate, ok := r.gates[d.Request]; ok {
		r.entered <- d.Request
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.fakeResolver.Resolve(ctx, d)
}

func (r *gatedResolver) awaitEntered(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-r.entered:
		if got != want {
			t.Fatalf("resolving %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("resolve of %q never started", want)
	}
}

// within fails the test when fn blocks, which means it waited on the lock.
func within(t *testing.T, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("%s blocked while a resolve was in flight", what)
	}
}

func (q *GuildQueue) lookaheadIdle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lookahead == uuid.Nil
}
