package ytvideodata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

var (
	ErrVideoNotFound      = errors.New("video not found")
	ErrVideoNotEmbeddable = errors.New("video is not embeddable")
)

var oembedStatusErrors = map[int]error{
	http.StatusBadRequest:   ErrVideoNotFound,
	http.StatusNotFound:     ErrVideoNotFound,
	http.StatusUnauthorized: ErrVideoNotEmbeddable,
	http.StatusForbidden:    ErrVideoNotEmbeddable,
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

func defaultThumbnail(videoId string) string {
	return "https://i.ytimg.com/vi/" + videoId + "/hqdefault.jpg"
}

func (c Client) getVideoWithEmbed(ctx context.Context, videoId string) (*VideoData, error) {
	q := url.Values{
		"url":    {"https://www.youtube.com/watch?v=" + videoId},
		"format": {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.oembedURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if err, ok := oembedStatusErrors[resp.StatusCode]; ok {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode oembed response: %w", err)
	}

	data := &VideoData{
		Title:        body.Title,
		AuthorName:   body.AuthorName,
		ThumbnailUrl: body.ThumbnailUrl,
	}
	if data.ThumbnailUrl == "" {
		data.ThumbnailUrl = defaultThumbnail(videoId)
	}
	return data, nil
}
