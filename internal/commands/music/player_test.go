package music

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue/queuetest"
	"github.com/PancyStudios/PancyMusicGo/pkg/resolver"
)

type fakePlaylists struct {
	queuetest.Resolver
	tracks []string
}

func (f fakePlaylists) IsPlaylist(request string) bool {
	return strings.HasPrefix(request, "list:")
}

func (f fakePlaylists) ResolvePlaylist(ctx context.Context, request, requestedBy string) ([]queue.TrackDescriptor, error) {
	out := make([]queue.TrackDescriptor, 0, len(f.tracks))
	for _, t := range f.tracks {
		out = append(out, queue.NewDescriptor(t, requestedBy))
	}
	return out, nil
}

func newTestPlayer(t *testing.T, r queue.Resolver) (*Player, *queuetest.Driver) {
	t.Helper()
	driver := queuetest.NewDriver()
	reg := queue.NewRegistry(driver, r, nil, queue.Options{IdleInterval: time.Hour, IdleThreshold: 5})
	t.Cleanup(func() { reg.Shutdown(context.Background()) })

	p := &Player{
		registry:      reg,
		defaultVolume: 80,
		settings: func(guildID string) models.GuildMusicSettings {
			if guildID == "loud" {
				return models.GuildMusicSettings{GuildID: guildID, DefaultVolume: 100}
			}
			return models.GuildMusicSettings{GuildID: guildID}
		},
	}
	return p, driver
}

func play(t *testing.T, p *Player, guildID, userID, query string) PlayResult {
	t.Helper()
	res, err := p.Play(context.Background(), PlayRequest{
		GuildID:        guildID,
		VoiceChannelID: "voice",
		TextChannelID:  "text",
		UserID:         userID,
		Query:          query,
	})
	if err != nil {
		t.Fatalf("Play(%q) returned error: %v", query, err)
	}
	return res
}

func TestPlayStartsThenQueues(t *testing.T) {
	p, driver := newTestPlayer(t, queuetest.Resolver{})

	first := play(t, p, "g1", "u1", "one")
	if !first.Started || first.Title != "one" {
		t.Errorf("first Play() = %+v, want started %q", first, "one")
	}

	second := play(t, p, "g1", "u1", "two")
	if second.Started || second.Position != 1 {
		t.Errorf("second Play() = %+v, want queued at 1", second)
	}

	if got := driver.StartedTitles(); len(got) != 1 || got[0] != "one" {
		t.Errorf("StartedTitles() = %v, want [one]", got)
	}
	if got := driver.Joined["g1"]; got != "voice" {
		t.Errorf("Joined[g1] = %v, want %v", got, "voice")
	}
}

func TestPlayResolutionFailure(t *testing.T) {
	p, _ := newTestPlayer(t, queuetest.Resolver{})

	_, err := p.Play(context.Background(), PlayRequest{GuildID: "g1", VoiceChannelID: "voice", UserID: "u1", Query: "fail me"})
	if !errors.Is(err, queue.ErrResolutionFailed) {
		t.Fatalf("Play() error = %v, want %v", err, queue.ErrResolutionFailed)
	}
	if msg := userMessage(err); msg != "❌ No se pudo cargar esa canción." {
		t.Errorf("userMessage() = %v", msg)
	}
}

func TestPlayOtherChannel(t *testing.T) {
	p, _ := newTestPlayer(t, queuetest.Resolver{})
	play(t, p, "g1", "u1", "one")

	_, err := p.Play(context.Background(), PlayRequest{GuildID: "g1", VoiceChannelID: "elsewhere", UserID: "u2", Query: "two"})
	if !errors.Is(err, errOtherChannel) {
		t.Errorf("Play() error = %v, want %v", err, errOtherChannel)
	}
}

func TestPlayPlaylist(t *testing.T) {
	p, driver := newTestPlayer(t, fakePlaylists{tracks: []string{"a", "b", "c"}})

	res := play(t, p, "g1", "u1", "list:mix")
	if res.Added != 3 || !res.Started || res.Partial {
		t.Errorf("Play() = %+v, want 3 added and started", res)
	}
	if got := driver.StartedTitles(); len(got) != 1 || got[0] != "a" {
		t.Errorf("StartedTitles() = %v, want [a]", got)
	}
	if msg := playMessage(res); !strings.Contains(msg, "**3**") {
		t.Errorf("playMessage() = %v", msg)
	}
}

func TestSessionVolume(t *testing.T) {
	p, _ := newTestPlayer(t, queuetest.Resolver{})

	q, err := p.Join(context.Background(), "g1", "voice", "text")
	if err != nil {
		t.Fatalf("Join() returned error: %v", err)
	}
	if q.Volume() != 0.8 {
		t.Errorf("Volume() = %v, want %v", q.Volume(), 0.8)
	}

	loud, err := p.Join(context.Background(), "loud", "voice", "text")
	if err != nil {
		t.Fatalf("Join() returned error: %v", err)
	}
	if loud.Volume() != 1 {
		t.Errorf("Volume() = %v, want %v", loud.Volume(), 1)
	}
}

func TestSkipPermissions(t *testing.T) {
	p, driver := newTestPlayer(t, queuetest.Resolver{})
	play(t, p, "g1", "author", "one")

	tests := []struct {
		name    string
		userID  string
		level   models.PermLevel
		wantErr error
	}{
		{"stranger", "other", models.PermUser, errNotRequester},
		{"dj", "other", models.PermDJ, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Skip(context.Background(), "g1", tt.userID, tt.level)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Skip() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if len(driver.Stopped) != 1 || driver.Stopped[0] != "one" {
		t.Errorf("Stopped = %v, want [one]", driver.Stopped)
	}
}

func TestSkipByAuthor(t *testing.T) {
	p, _ := newTestPlayer(t, queuetest.Resolver{})
	play(t, p, "g1", "author", "one")

	title, err := p.Skip(context.Background(), "g1", "author", models.PermNone)
	if err != nil {
		t.Fatalf("Skip() returned error: %v", err)
	}
	if title != "one" {
		t.Errorf("Skip() = %v, want %v", title, "one")
	}
}

func TestControlsWithoutSession(t *testing.T) {
	p, _ := newTestPlayer(t, queuetest.Resolver{})
	ctx := context.Background()

	checks := map[string]error{
		"stop":  p.Stop(ctx, "g1"),
		"pause": p.Pause(ctx, "g1"),
		"leave": p.Leave(ctx, "g1"),
	}
	for name, err := range checks {
		if !errors.Is(err, queue.ErrNotConnected) {
			t.Errorf("%s error = %v, want %v", name, err, queue.ErrNotConnected)
		}
	}
	if _, err := p.NowPlaying("g1"); !errors.Is(err, queue.ErrNotConnected) {
		t.Errorf("NowPlaying() error = %v, want %v", err, queue.ErrNotConnected)
	}
}

func TestRemoveAndQueue(t *testing.T) {
	p, _ := newTestPlayer(t, queuetest.Resolver{})
	for _, q := range []string{"one", "two", "three"} {
		play(t, p, "g1", "u1", q)
	}

	d, err := p.Remove(context.Background(), "g1", 2)
	if err != nil {
		t.Fatalf("Remove() returned error: %v", err)
	}
	if d.Request != "three" {
		t.Errorf("Remove() = %v, want %v", d.Request, "three")
	}

	if _, err := p.Remove(context.Background(), "g1", 5); !errors.Is(err, queue.ErrIndexOutOfRange) {
		t.Errorf("Remove() error = %v, want %v", err, queue.ErrIndexOutOfRange)
	}

	items, err := p.Queue("g1")
	if err != nil {
		t.Fatalf("Queue() returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(Queue()) = %v, want %v", len(items), 2)
	}

	embed := queueEmbed(items, 1)
	if !strings.Contains(embed.Description, "one") || !strings.Contains(embed.Description, "`1.` two") {
		t.Errorf("queueEmbed() description = %q", embed.Description)
	}
}

func TestVolumeLoopMute(t *testing.T) {
	p, _ := newTestPlayer(t, queuetest.Resolver{})
	play(t, p, "g1", "u1", "one")
	ctx := context.Background()

	level, err := p.SetVolume(ctx, "g1", 150)
	if err != nil {
		t.Fatalf("SetVolume() returned error: %v", err)
	}
	if level != 100 {
		t.Errorf("SetVolume() = %v, want %v", level, 100)
	}

	loop, err := p.ToggleLoop("g1")
	if err != nil || !loop {
		t.Errorf("ToggleLoop() = %v, %v, want true", loop, err)
	}

	muted, err := p.ToggleMute(ctx, "g1")
	if err != nil || !muted {
		t.Errorf("ToggleMute() = %v, %v, want true", muted, err)
	}

	np, err := p.NowPlaying("g1")
	if err != nil {
		t.Fatalf("NowPlaying() returned error: %v", err)
	}
	if !np.Loop || !np.Muted || np.Volume != 1 {
		t.Errorf("NowPlaying() = %+v", np)
	}

	embed := nowPlayingEmbed(np)
	if len(embed.Fields) != 7 {
		t.Errorf("len(Fields) = %v, want %v", len(embed.Fields), 7)
	}
}

func TestSeek(t *testing.T) {
	p, _ := newTestPlayer(t, queuetest.Resolver{})
	play(t, p, "g1", "u1", "one")

	pos, err := p.Seek(context.Background(), "g1", "1:30")
	if err != nil {
		t.Fatalf("Seek() returned error: %v", err)
	}
	if pos != 90*time.Second {
		t.Errorf("Seek() = %v, want %v", pos, 90*time.Second)
	}

	np, _ := p.NowPlaying("g1")
	if np.Position != 90*time.Second {
		t.Errorf("Position = %v, want %v", np.Position, 90*time.Second)
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"90", 90 * time.Second, false},
		{"1:30", 90 * time.Second, false},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second, false},
		{" 45 ", 45 * time.Second, false},
		{"", 0, true},
		{"1:75", 0, true},
		{"abc", 0, true},
		{"-5", 0, true},
		{"1:2:3:4", 0, true},
	}
	for _, tt := range tests {
		got, err := parsePosition(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePosition(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parsePosition(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{resolver.ErrSpotifyConfig, "❌ Los enlaces de Spotify no están habilitados en este bot."},
		{&queue.Error{Op: "add", Kind: queue.ErrResolutionFailed, Err: resolver.ErrNoResults}, "❌ No se encontraron resultados."},
		{&queue.Error{Op: "skip", Kind: queue.ErrNothingPlaying}, "🔇 No hay nada reproduciéndose."},
		{&queue.Error{Op: "skip", Kind: queue.ErrTrackChanged}, "⏭️ Esa canción ya terminó, no se saltó nada."},
		{queue.ErrNotConnected, "❌ No estoy en un canal de voz."},
		{errors.New("boom"), "❌ Error: boom"},
	}
	for _, tt := range tests {
		if got := userMessage(tt.err); got != tt.want {
			t.Errorf("userMessage(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}

	if !reportable(&queue.Error{Op: "pause", Kind: queue.ErrDriver, Err: errors.New("ws closed")}) {
		t.Error("driver errors should be reportable")
	}
	if reportable(queue.ErrNothingPlaying) {
		t.Error("ErrNothingPlaying should not be reportable")
	}
}

func TestQueueEmbedPaging(t *testing.T) {
	items := make([]queue.QueueItem, 0, 26)
	for i := 0; i < 26; i++ {
		items = append(items, queue.QueueItem{Position: i, Title: "t", RequestedBy: "u"})
	}

	tests := []struct {
		page       int
		wantFooter string
	}{
		{1, "Página 1/3 · 25 en cola"},
		{3, "Página 3/3 · 25 en cola"},
		{9, "Página 3/3 · 25 en cola"},
		{0, "Página 1/3 · 25 en cola"},
	}
	for _, tt := range tests {
		if got := queueEmbed(items, tt.page).Footer.Text; got != tt.wantFooter {
			t.Errorf("queueEmbed(page %d) footer = %v, want %v", tt.page, got, tt.wantFooter)
		}
	}

	if got := queueEmbed(nil, 1).Description; got != "📭 La cola está vacía." {
		t.Errorf("empty queueEmbed() = %v", got)
	}
}
