package lavalink

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
)

// Load types returned by /v4/loadtracks
const (
	LoadTrack    = "track"
	LoadPlaylist = "playlist"
	LoadSearch   = "search"
	LoadEmpty    = "empty"
	LoadError    = "error"
)

// LoadResult is a decoded /v4/loadtracks response.
type LoadResult struct {
	LoadType      string
	Tracks        []Track
	PlaylistName  string
	SelectedTrack int
	Exception     *Exception
}

type rawLoadResult struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

type playlistData struct {
	Info struct {
		Name          string `json:"name"`
		SelectedTrack int    `json:"selectedTrack"`
	} `json:"info"`
	Tracks []Track `json:"tracks"`
}

// LoadTracks resolves an identifier: a URL, or a search such as
// "ytsearch:never gonna give you up".
func (c *Client) LoadTracks(ctx context.Context, identifier string) (*LoadResult, error) {
	node, err := c.node()
	if err != nil {
		return nil, err
	}

	var raw rawLoadResult
	path := "/v4/loadtracks?identifier=" + url.QueryEscape(identifier)
	if err := node.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeLoadResult(&raw)
}

func decodeLoadResult(raw *rawLoadResult) (*LoadResult, error) {
	res := &LoadResult{LoadType: raw.LoadType, SelectedTrack: -1}

	switch raw.LoadType {
	case LoadTrack:
		var t Track
		if err := json.Unmarshal(raw.Data, &t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		res.Tracks = []Track{t}
	case LoadSearch:
		if err := json.Unmarshal(raw.Data, &res.Tracks); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
	case LoadPlaylist:
		var pl playlistData
		if err := json.Unmarshal(raw.Data, &pl); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		res.Tracks = pl.Tracks
		res.PlaylistName = pl.Info.Name
		res.SelectedTrack = pl.Info.SelectedTrack
	case LoadError:
		var ex Exception
		if err := json.Unmarshal(raw.Data, &ex); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		res.Exception = &ex
	case LoadEmpty:
	default:
		return nil, fmt.Errorf("%w: loadType %q", ErrInvalidData, raw.LoadType)
	}
	return res, nil
}
