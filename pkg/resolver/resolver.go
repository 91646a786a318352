// Package resolver turns user requests into playable tracks. Single tracks
// and searches go through Lavalink; playlists are expanded with the Spotify
// Web API, yt-dlp or Lavalink itself.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/lavalink"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
)

var (
	ErrNoResults     = errors.New("no se encontraron resultados")
	ErrLoadFailed    = errors.New("Lavalink no pudo cargar la pista")
	ErrSpotifyConfig = errors.New("Spotify no está configurado")
)

// Loader is the Lavalink track loader.
type Loader interface {
	LoadTracks(ctx context.Context, identifier string) (*lavalink.LoadResult, error)
}

// Options configures a Resolver.
type Options struct {
	// SearchPrefix is prepended to plain-text requests, e.g. "ytsearch".
	SearchPrefix        string
	SpotifyClientID     string
	SpotifyClientSecret string
	// PlaylistLimit caps expanded playlists; 0 means no limit.
	PlaylistLimit int
}

// Resolver implements queue.PlaylistResolver.
type Resolver struct {
	loader   Loader
	prefix   string
	limit    int
	spotify  *spotifyClient
	playlist playlistFetcher
}

var _ queue.PlaylistResolver = (*Resolver)(nil)

// New creates a resolver. Spotify links are only supported when both
// credentials are set.
func New(loader Loader, opts Options) *Resolver {
	prefix := opts.SearchPrefix
	if prefix == "" {
		prefix = "ytsearch"
	}
	r := &Resolver{
		loader:   loader,
		prefix:   prefix,
		limit:    opts.PlaylistLimit,
		playlist: ytdlpPlaylist,
	}
	if opts.SpotifyClientID != "" && opts.SpotifyClientSecret != "" {
		r.spotify = newSpotifyClient(opts.SpotifyClientID, opts.SpotifyClientSecret)
	}
	return r
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// identifier maps a request to a Lavalink identifier.
func (r *Resolver) identifier(request string) string {
	request = strings.TrimSpace(request)
	if isURL(request) || strings.Contains(request, "search:") {
		return request
	}
	return r.prefix + ":" + request
}

// Resolve loads the request and picks the track to play: the only track, the
// first search hit, or the selected entry of a playlist.
func (r *Resolver) Resolve(ctx context.Context, d queue.TrackDescriptor) (*queue.Source, error) {
	res, err := r.loader.LoadTracks(ctx, r.identifier(d.Request))
	if err != nil {
		return nil, err
	}

	var track lavalink.Track
	switch res.LoadType {
	case lavalink.LoadTrack, lavalink.LoadSearch:
		if len(res.Tracks) == 0 {
			return nil, ErrNoResults
		}
		track = res.Tracks[0]
	case lavalink.LoadPlaylist:
		if len(res.Tracks) == 0 {
			return nil, ErrNoResults
		}
		idx := res.SelectedTrack
		if idx < 0 || idx >= len(res.Tracks) {
			idx = 0
		}
		track = res.Tracks[idx]
	case lavalink.LoadError:
		msg := "desconocido"
		if res.Exception != nil {
			msg = res.Exception.Message
		}
		return nil, fmt.Errorf("%w: %s", ErrLoadFailed, msg)
	default:
		return nil, ErrNoResults
	}

	return &queue.Source{
		Descriptor: d,
		Metadata:   metadataOf(track),
		Payload:    track.Encoded,
	}, nil
}

func metadataOf(t lavalink.Track) queue.Metadata {
	return queue.Metadata{
		Title:    t.Info.Title,
		Artist:   t.Info.Author,
		Duration: time.Duration(t.Info.Length) * time.Millisecond,
		URL:      t.Info.URI,
		Artwork:  t.Info.ArtworkURL,
		IsStream: t.Info.IsStream,
	}
}

// IsPlaylist reports whether the request should be expanded with
// ResolvePlaylist before queueing.
func (r *Resolver) IsPlaylist(request string) bool {
	request = strings.TrimSpace(request)
	if isSpotify(request) {
		return true
	}
	if isYouTubePlaylist(request) {
		return true
	}
	if !isURL(request) {
		return false
	}
	u, _ := url.Parse(request)
	path := strings.ToLower(u.Path)
	return strings.Contains(path, "/playlist") || strings.Contains(path, "/sets/") || strings.Contains(path, "/album")
}

// ResolvePlaylist expands a playlist link into one descriptor per track.
// Spotify entries become "artist - title" searches. YouTube playlists are
// listed with yt-dlp, falling back to Lavalink when that fails.
func (r *Resolver) ResolvePlaylist(ctx context.Context, request, requestedBy string) ([]queue.TrackDescriptor, error) {
	request = strings.TrimSpace(request)

	switch {
	case isSpotify(request):
		return r.spotifyPlaylist(ctx, request, requestedBy)
	case isYouTubePlaylist(request) && r.playlist != nil:
		entries, title, err := r.playlist(ctx, request)
		if err == nil && len(entries) > 0 {
			logger.Info(fmt.Sprintf("Lista %q expandida con yt-dlp (%d pistas)", title, len(entries)), "Resolver")
			return r.fromEntries(entries, requestedBy), nil
		}
		logger.Warn(fmt.Sprintf("yt-dlp no pudo listar %s, usando Lavalink: %v", request, err), "Resolver")
	}
	return r.lavalinkPlaylist(ctx, request, requestedBy)
}

func (r *Resolver) spotifyPlaylist(ctx context.Context, request, requestedBy string) ([]queue.TrackDescriptor, error) {
	if r.spotify == nil {
		return nil, ErrSpotifyConfig
	}
	tracks, name, err := r.spotify.tracks(ctx, request, r.limit)
	if err != nil {
		return nil, fmt.Errorf("spotify: %w", err)
	}
	if len(tracks) == 0 {
		return nil, ErrNoResults
	}
	logger.Info(fmt.Sprintf("Lista de Spotify %q expandida (%d pistas)", name, len(tracks)), "Resolver")

	out := make([]queue.TrackDescriptor, 0, len(tracks))
	for _, t := range tracks {
		d := queue.NewDescriptor(t.Query(), requestedBy)
		d.Title = t.Query()
		out = append(out, d)
	}
	return out, nil
}

func (r *Resolver) fromEntries(entries []playlistEntry, requestedBy string) []queue.TrackDescriptor {
	out := make([]queue.TrackDescriptor, 0, len(entries))
	for _, e := range entries {
		if r.limit > 0 && len(out) >= r.limit {
			break
		}
		d := queue.NewDescriptor(e.URL, requestedBy)
		d.Title = e.Title
		out = append(out, d)
	}
	return out
}

func (r *Resolver) lavalinkPlaylist(ctx context.Context, request, requestedBy string) ([]queue.TrackDescriptor, error) {
	res, err := r.loader.LoadTracks(ctx, r.identifier(request))
	if err != nil {
		return nil, err
	}
	switch res.LoadType {
	case lavalink.LoadError:
		msg := "desconocido"
		if res.Exception != nil {
			msg = res.Exception.Message
		}
		return nil, fmt.Errorf("%w: %s", ErrLoadFailed, msg)
	case lavalink.LoadEmpty:
		return nil, ErrNoResults
	case lavalink.LoadSearch:
		// a search is a single request, not a list
		if len(res.Tracks) == 0 {
			return nil, ErrNoResults
		}
		res.Tracks = res.Tracks[:1]
	}

	out := make([]queue.TrackDescriptor, 0, len(res.Tracks))
	for _, t := range res.Tracks {
		if r.limit > 0 && len(out) >= r.limit {
			break
		}
		req := t.Info.URI
		if req == "" {
			req = t.Info.Author + " - " + t.Info.Title
		}
		d := queue.NewDescriptor(req, requestedBy)
		d.Title = t.Info.Title
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, ErrNoResults
	}
	return out, nil
}
