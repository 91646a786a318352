package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// spotifyTrack is the minimum needed to search a Spotify track elsewhere.
type spotifyTrack struct {
	Name   string
	Artist string
}

// Query is the search string used to find the track on a playable source.
func (t spotifyTrack) Query() string {
	if t.Artist == "" {
		return t.Name
	}
	return t.Artist + " - " + t.Name
}

type spotifyClient struct {
	raw *spotify.Client
}

func newSpotifyClient(clientID, clientSecret string) *spotifyClient {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := cfg.Client(context.Background())
	return &spotifyClient{raw: spotify.New(httpClient, spotify.WithRetry(true))}
}

func isSpotify(s string) bool {
	return strings.HasPrefix(s, "spotify:") || strings.Contains(s, "open.spotify.com")
}

// parseSpotifyID accepts spotify:type:id URIs and open.spotify.com links.
func parseSpotifyID(raw string) (typ string, id spotify.ID, err error) {
	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) == 3 {
			return parts[1], spotify.ID(parts[2]), nil
		}
		return "", "", fmt.Errorf("URI de Spotify inválida")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Host != "open.spotify.com" && u.Host != "www.open.spotify.com" {
		return "", "", fmt.Errorf("no es un enlace de Spotify")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// localized links look like /intl-es/track/<id>
	if len(parts) > 2 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 {
		return "", "", fmt.Errorf("ruta de Spotify inválida")
	}
	switch parts[0] {
	case "album", "playlist", "track", "artist":
		return parts[0], spotify.ID(parts[1]), nil
	}
	return "", "", fmt.Errorf("tipo de Spotify no soportado: %s", parts[0])
}

func firstArtist(artists []spotify.SimpleArtist) string {
	if len(artists) > 0 {
		return artists[0].Name
	}
	return ""
}

// tracks lists the tracks behind any supported Spotify link.
func (c *spotifyClient) tracks(ctx context.Context, link string, limit int) ([]spotifyTrack, string, error) {
	typ, id, err := parseSpotifyID(link)
	if err != nil {
		return nil, "", err
	}
	switch typ {
	case "track":
		t, err := c.raw.GetTrack(ctx, id)
		if err != nil {
			return nil, "", err
		}
		return []spotifyTrack{{Name: t.Name, Artist: firstArtist(t.Artists)}}, t.Name, nil
	case "album":
		return c.album(ctx, id, limit)
	case "playlist":
		return c.playlist(ctx, id, limit)
	case "artist":
		full, err := c.raw.GetArtistsTopTracks(ctx, id, "US")
		if err != nil {
			return nil, "", err
		}
		out := make([]spotifyTrack, 0, len(full))
		for _, t := range full {
			if limit > 0 && len(out) >= limit {
				break
			}
			out = append(out, spotifyTrack{Name: t.Name, Artist: firstArtist(t.Artists)})
		}
		name := ""
		if len(full) > 0 {
			name = firstArtist(full[0].Artists)
		}
		return out, name, nil
	}
	return nil, "", fmt.Errorf("tipo de Spotify no soportado: %s", typ)
}

func (c *spotifyClient) album(ctx context.Context, id spotify.ID, limit int) ([]spotifyTrack, string, error) {
	alb, err := c.raw.GetAlbum(ctx, id)
	if err != nil {
		return nil, "", err
	}
	page, err := c.raw.GetAlbumTracks(ctx, id)
	if err != nil {
		return nil, "", err
	}
	out := make([]spotifyTrack, 0, page.Total)
	add := func(items []spotify.SimpleTrack) {
		for _, t := range items {
			if limit > 0 && len(out) >= limit {
				break
			}
			out = append(out, spotifyTrack{Name: t.Name, Artist: firstArtist(t.Artists)})
		}
	}
	add(page.Tracks)
	for page.Next != "" && (limit == 0 || len(out) < limit) {
		if err := c.raw.NextPage(ctx, page); err != nil {
			break
		}
		add(page.Tracks)
	}
	return out, alb.Name, nil
}

func (c *spotifyClient) playlist(ctx context.Context, id spotify.ID, limit int) ([]spotifyTrack, string, error) {
	pl, err := c.raw.GetPlaylist(ctx, id)
	if err != nil {
		return nil, "", err
	}
	page, err := c.raw.GetPlaylistItems(ctx, id)
	if err != nil {
		return nil, "", err
	}
	out := make([]spotifyTrack, 0, page.Total)
	add := func(items []spotify.PlaylistItem) {
		for _, it := range items {
			if limit > 0 && len(out) >= limit {
				break
			}
			if t := it.Track.Track; t != nil {
				out = append(out, spotifyTrack{Name: t.Name, Artist: firstArtist(t.Artists)})
			}
		}
	}
	add(page.Items)
	for page.Next != "" && (limit == 0 || len(out) < limit) {
		if err := c.raw.NextPage(ctx, page); err != nil {
			break
		}
		add(page.Items)
	}
	return out, pl.Name, nil
}
