package room

import (
	"context"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
)

const maxSearchResults = 5

type SearchParams struct {
	Query string
	Kind  domain.MediaKind
}

func (s service) Search(ctx context.Context, params *SearchParams) []domain.Track {
	if s.searcher == nil {
		return []domain.Track{}
	}

	kind := params.Kind
	if !kind.Valid() {
		kind = domain.MediaKindVideo
	}

	tracks := s.searcher.Search(ctx, params.Query, kind)
	if len(tracks) > maxSearchResults {
		tracks = tracks[:maxSearchResults]
	}

	return tracks
}
