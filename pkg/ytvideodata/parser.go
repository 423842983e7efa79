package ytvideodata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

const pageTitleSuffix = " - YouTube"

func (c Client) getFromPage(ctx context.Context, videoId string) (*VideoData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL+videoId, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data := scanPage(resp.Body)
	if data.ThumbnailUrl == "" {
		data.ThumbnailUrl = defaultThumbnail(videoId)
	}
	return data, nil
}

// scanPage reads the head of a watch page: <title>, og:image and the channel name link.
func scanPage(r io.Reader) *VideoData {
	var data VideoData
	z := html.NewTokenizer(r)
	inTitle := false

	for {
		switch z.Next() {
		case html.ErrorToken:
			data.Title = strings.TrimSuffix(strings.TrimSpace(data.Title), pageTitleSuffix)
			return &data
		case html.TextToken:
			if inTitle && data.Title == "" {
				data.Title = string(z.Text())
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "title" {
				inTitle = false
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "title":
				inTitle = true
			case "meta":
				if attr(tok, "property") == "og:image" && data.ThumbnailUrl == "" {
					data.ThumbnailUrl = attr(tok, "content")
				}
			case "link":
				if attr(tok, "itemprop") == "name" && data.AuthorName == "" {
					data.AuthorName = attr(tok, "content")
				}
			}
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
