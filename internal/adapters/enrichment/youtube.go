// Package enrichment looks up supporting videos for a reply. The
// lookup is strictly best-effort: the chat turn never waits past its
// bounded timeout and never fails because of it.
package enrichment

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/mindwell-app/mindwell-backend/internal/domain"
)

const (
	maxResults = 2

	// querySuffix steers results toward professional content.
	querySuffix = " mental health therapy by professional"
)

// YouTubeClient implements domain.Enricher over the YouTube Data API.
type YouTubeClient struct {
	svc *youtube.Service
}

func NewYouTubeClient(ctx context.Context, apiKey string) (*YouTubeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required for the YouTube client")
	}

	svc, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating youtube service: %w", err)
	}
	return &YouTubeClient{svc: svc}, nil
}

func (c *YouTubeClient) Lookup(ctx context.Context, query string) ([]domain.Video, error) {
	res, err := c.svc.Search.List([]string{"snippet"}).
		Q(query+querySuffix).
		MaxResults(maxResults).
		Type("video").
		SafeSearch("strict").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	videos := make([]domain.Video, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		videos = append(videos, domain.Video{
			Type:      "video",
			Title:     item.Snippet.Title,
			URL:       "https://www.youtube.com/watch?v=" + item.Id.VideoId,
			Thumbnail: thumbnailURL(item.Snippet.Thumbnails),
		})
	}
	return videos, nil
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	if t.Medium != nil {
		return t.Medium.Url
	}
	if t.Default != nil {
		return t.Default.Url
	}
	return ""
}
