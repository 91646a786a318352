package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	ytdlp "github.com/lrstanley/go-ytdlp"
)

// playlistEntry is one item of a flat playlist listing.
type playlistEntry struct {
	URL      string
	Title    string
	Duration time.Duration
}

// playlistFetcher lists a remote playlist without downloading it.
type playlistFetcher func(ctx context.Context, link string) ([]playlistEntry, string, error)

var installOnce sync.Once

func isYouTubePlaylist(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.TrimPrefix(u.Host, "www.")
	host = strings.TrimPrefix(host, "m.")
	if host != "youtube.com" && host != "music.youtube.com" && host != "youtu.be" {
		return false
	}
	return u.Query().Get("list") != ""
}

// ytdlpPlaylist lists a playlist with yt-dlp --flat-playlist.
func ytdlpPlaylist(ctx context.Context, link string) ([]playlistEntry, string, error) {
	installOnce.Do(func() {
		ytdlp.MustInstall(ctx, nil)
	})

	res, err := ytdlp.New().
		FlatPlaylist().
		DumpJSON().
		Run(ctx, link)
	if err != nil {
		return nil, "", fmt.Errorf("yt-dlp playlist fetch failed for %s: %w", link, err)
	}

	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, "", fmt.Errorf("parse yt-dlp playlist json for %s: %w", link, err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, "", fmt.Errorf("yt-dlp returned empty playlist info for %s", link)
	}

	pl := infos[0]
	title := ""
	if pl.Title != nil {
		title = *pl.Title
	}

	out := make([]playlistEntry, 0, len(pl.Entries))
	for _, e := range pl.Entries {
		if e == nil || e.ID == "" {
			continue
		}
		entry := playlistEntry{URL: "https://www.youtube.com/watch?v=" + e.ID}
		if e.Title != nil {
			entry.Title = *e.Title
		}
		if e.Duration != nil {
			entry.Duration = time.Duration(*e.Duration * float64(time.Second))
		}
		out = append(out, entry)
	}
	logger.Debug(fmt.Sprintf("yt-dlp listó %d entradas de %s", len(out), link), "Resolver")
	return out, title, nil
}
