package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/lavalink"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
)

type fakeLoader struct {
	results map[string]*lavalink.LoadResult
	err     error
	calls   []string
}

func (f *fakeLoader) LoadTracks(ctx context.Context, identifier string) (*lavalink.LoadResult, error) {
	f.calls = append(f.calls, identifier)
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.results[identifier]; ok {
		return res, nil
	}
	return &lavalink.LoadResult{LoadType: lavalink.LoadEmpty}, nil
}

func track(title, uri string) lavalink.Track {
	return lavalink.Track{
		Encoded: "enc-" + title,
		Info:    lavalink.TrackInfo{Title: title, Author: "Band", Length: 180000, URI: uri},
	}
}

func TestIdentifier(t *testing.T) {
	r := New(&fakeLoader{}, Options{SearchPrefix: "scsearch"})

	tests := []struct {
		in   string
		want string
	}{
		{"never gonna give you up", "scsearch:never gonna give you up"},
		{"  padded  ", "scsearch:padded"},
		{"https://youtu.be/dQw4w9WgXcQ", "https://youtu.be/dQw4w9WgXcQ"},
		{"ytsearch:explicit", "ytsearch:explicit"},
	}
	for _, tt := range tests {
		if got := r.identifier(tt.in); got != tt.want {
			t.Errorf("identifier(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	loader := &fakeLoader{results: map[string]*lavalink.LoadResult{
		"ytsearch:song": {LoadType: lavalink.LoadSearch, Tracks: []lavalink.Track{track("First", "u1"), track("Second", "u2")}},
		"https://x/pl":  {LoadType: lavalink.LoadPlaylist, SelectedTrack: 1, Tracks: []lavalink.Track{track("A", "a"), track("B", "b")}},
		"https://x/bad": {LoadType: lavalink.LoadError, Exception: &lavalink.Exception{Message: "blocked"}},
	}}
	r := New(loader, Options{})

	tests := []struct {
		name      string
		request   string
		wantTitle string
		wantErr   error
	}{
		{"search takes first hit", "song", "First", nil},
		{"playlist takes selected", "https://x/pl", "B", nil},
		{"load error", "https://x/bad", "", ErrLoadFailed},
		{"empty", "nothing here", "", ErrNoResults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := queue.NewDescriptor(tt.request, "u1")
			src, err := r.Resolve(context.Background(), d)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() returned error: %v", err)
			}
			if src.Metadata.Title != tt.wantTitle {
				t.Errorf("Title = %v, want %v", src.Metadata.Title, tt.wantTitle)
			}
			if src.Descriptor.ID != d.ID {
				t.Errorf("Descriptor.ID = %v, want %v", src.Descriptor.ID, d.ID)
			}
			if src.Metadata.Duration != 3*time.Minute {
				t.Errorf("Duration = %v, want %v", src.Metadata.Duration, 3*time.Minute)
			}
			if src.Payload != "enc-"+tt.wantTitle {
				t.Errorf("Payload = %v, want %v", src.Payload, "enc-"+tt.wantTitle)
			}
		})
	}
}

func TestResolveLoaderError(t *testing.T) {
	boom := errors.New("node down")
	r := New(&fakeLoader{err: boom}, Options{})
	if _, err := r.Resolve(context.Background(), queue.NewDescriptor("x", "u1")); !errors.Is(err, boom) {
		t.Errorf("Resolve() error = %v, want %v", err, boom)
	}
}

func TestIsPlaylist(t *testing.T) {
	r := New(&fakeLoader{}, Options{})

	tests := []struct {
		in   string
		want bool
	}{
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", true},
		{"spotify:album:4aawyAB9vmqN3uQ7FjRGTy", true},
		{"https://www.youtube.com/playlist?list=PL123", true},
		{"https://www.youtube.com/watch?v=abc&list=PL123", true},
		{"https://soundcloud.com/artist/sets/mix", true},
		{"https://www.youtube.com/watch?v=abc", false},
		{"just a search", false},
	}
	for _, tt := range tests {
		if got := r.IsPlaylist(tt.in); got != tt.want {
			t.Errorf("IsPlaylist(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseSpotifyID(t *testing.T) {
	tests := []struct {
		in      string
		typ     string
		id      string
		wantErr bool
	}{
		{"spotify:track:abc", "track", "abc", false},
		{"https://open.spotify.com/album/xyz?si=1", "album", "xyz", false},
		{"https://open.spotify.com/intl-es/playlist/p1", "playlist", "p1", false},
		{"https://open.spotify.com/show/s1", "", "", true},
		{"https://example.com/track/abc", "", "", true},
		{"spotify:bad", "", "", true},
	}
	for _, tt := range tests {
		typ, id, err := parseSpotifyID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSpotifyID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if typ != tt.typ || string(id) != tt.id {
			t.Errorf("parseSpotifyID(%q) = %v/%v, want %v/%v", tt.in, typ, id, tt.typ, tt.id)
		}
	}
}

func TestResolvePlaylistYouTube(t *testing.T) {
	r := New(&fakeLoader{}, Options{PlaylistLimit: 2})
	r.playlist = func(ctx context.Context, link string) ([]playlistEntry, string, error) {
		return []playlistEntry{
			{URL: "https://www.youtube.com/watch?v=1", Title: "One"},
			{URL: "https://www.youtube.com/watch?v=2", Title: "Two"},
			{URL: "https://www.youtube.com/watch?v=3", Title: "Three"},
		}, "mix", nil
	}

	ds, err := r.ResolvePlaylist(context.Background(), "https://www.youtube.com/playlist?list=PL1", "u1")
	if err != nil {
		t.Fatalf("ResolvePlaylist() returned error: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("len(ResolvePlaylist()) = %v, want %v", len(ds), 2)
	}
	if ds[0].Title != "One" || ds[0].Request != "https://www.youtube.com/watch?v=1" || ds[0].RequestedBy != "u1" {
		t.Errorf("first descriptor = %+v", ds[0])
	}
	if ds[0].ID == ds[1].ID {
		t.Errorf("descriptors share an id")
	}
}

func TestResolvePlaylistFallsBackToLavalink(t *testing.T) {
	link := "https://www.youtube.com/playlist?list=PL1"
	loader := &fakeLoader{results: map[string]*lavalink.LoadResult{
		link: {LoadType: lavalink.LoadPlaylist, Tracks: []lavalink.Track{track("A", "https://a"), track("B", "https://b")}},
	}}
	r := New(loader, Options{})
	r.playlist = func(ctx context.Context, link string) ([]playlistEntry, string, error) {
		return nil, "", errors.New("yt-dlp missing")
	}

	ds, err := r.ResolvePlaylist(context.Background(), link, "u1")
	if err != nil {
		t.Fatalf("ResolvePlaylist() returned error: %v", err)
	}
	if len(ds) != 2 || ds[1].Request != "https://b" || ds[1].Title != "B" {
		t.Errorf("ResolvePlaylist() = %+v", ds)
	}
}

func TestResolvePlaylistSpotifyNeedsCredentials(t *testing.T) {
	r := New(&fakeLoader{}, Options{})
	_, err := r.ResolvePlaylist(context.Background(), "https://open.spotify.com/playlist/p1", "u1")
	if !errors.Is(err, ErrSpotifyConfig) {
		t.Errorf("ResolvePlaylist() error = %v, want %v", err, ErrSpotifyConfig)
	}
}

func TestSpotifyTrackQuery(t *testing.T) {
	tests := []struct {
		track spotifyTrack
		want  string
	}{
		{spotifyTrack{Name: "Song", Artist: "Band"}, "Band - Song"},
		{spotifyTrack{Name: "Song"}, "Song"},
	}
	for _, tt := range tests {
		if got := tt.track.Query(); got != tt.want {
			t.Errorf("Query() = %v, want %v", got, tt.want)
		}
	}
}
