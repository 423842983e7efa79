package search

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/sosodev/duration"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	MaxResults = 5

	musicCategoryID = "10"
	searchedBy      = "Search"
)

var (
	typeQuery      = "video"
	id             = "id"
	snippet        = "snippet"
	contentDetails = "contentDetails"
)

type Config struct {
	APIKey string
	Limit  int64
}

type service struct {
	youtube *youtube.Service
	limit   int64
	logger  *slog.Logger
}

// New returns a service that answers every query with no results when no api key is configured.
func New(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...option.ClientOption) (*service, error) {
	limit := cfg.Limit
	if limit <= 0 || limit > MaxResults {
		limit = MaxResults
	}

	s := &service{limit: limit, logger: logger}
	if cfg.APIKey == "" {
		logger.WarnContext(ctx, "youtube api key is not set, search is disabled")
		return s, nil
	}

	yt, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	s.youtube = yt

	return s, nil
}

// Search never fails; errors are logged and produce an empty result.
func (s service) Search(ctx context.Context, query string, kind domain.MediaKind) []domain.Track {
	query = strings.TrimSpace(query)
	if s.youtube == nil || query == "" {
		return []domain.Track{}
	}

	tracks, err := s.search(ctx, query, kind)
	if err != nil {
		s.logger.WarnContext(ctx, "search failed", "query", query, "error", err)
		return []domain.Track{}
	}

	return tracks
}

func (s service) search(ctx context.Context, query string, kind domain.MediaKind) ([]domain.Track, error) {
	searchCall := s.youtube.Search.List([]string{id, snippet}).Q(query).Type(typeQuery).MaxResults(s.limit).Context(ctx)
	if kind == domain.MediaKindAudio {
		searchCall = searchCall.VideoCategoryId(musicCategoryID)
	}

	response, err := searchCall.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search videos: %w", err)
	}

	ids := make([]string, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		ids = append(ids, item.Id.VideoId)
	}
	if len(ids) == 0 {
		return []domain.Track{}, nil
	}

	durations := s.durations(ctx, ids)

	tracks := make([]domain.Track, 0, len(ids))
	for _, item := range response.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		tracks = append(tracks, domain.Track{
			ID:        item.Id.VideoId,
			Title:     html.UnescapeString(item.Snippet.Title),
			AddedBy:   searchedBy,
			Thumbnail: thumbnail(item.Snippet.Thumbnails),
			Duration:  durations[item.Id.VideoId],
			MediaKind: kind,
		})
		if int64(len(tracks)) == s.limit {
			break
		}
	}

	return tracks, nil
}

// durations is best effort; a failed lookup only drops the duration labels.
func (s service) durations(ctx context.Context, ids []string) map[string]string {
	out := make(map[string]string, len(ids))

	respVideo, err := s.youtube.Videos.List([]string{contentDetails}).Id(strings.Join(ids, ",")).Context(ctx).Do()
	if err != nil {
		s.logger.WarnContext(ctx, "failed to get video durations", "error", err)
		return out
	}

	for _, item := range respVideo.Items {
		if item.ContentDetails == nil {
			continue
		}
		d, err := duration.Parse(item.ContentDetails.Duration)
		if err != nil {
			s.logger.DebugContext(ctx, "failed to parse duration", "video_id", item.Id, "duration", item.ContentDetails.Duration)
			continue
		}
		out[item.Id] = formatDuration(durationOnSecond(d))
	}

	return out
}

func thumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Medium, t.Default, t.High} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func durationOnSecond(d *duration.Duration) int64 {
	return int64(d.Seconds) + int64(d.Minutes)*60 + int64(d.Hours)*3600 + int64(d.Days)*86400 + int64(d.Weeks)*7*86400
}

func formatDuration(seconds int64) string {
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
