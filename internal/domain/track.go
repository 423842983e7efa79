package domain

type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

var MediaKinds = []MediaKind{MediaKindAudio, MediaKindVideo}

func (k MediaKind) Valid() bool {
	return k == MediaKindAudio || k == MediaKindVideo
}

// Other returns the opposite channel kind.
func (k MediaKind) Other() MediaKind {
	if k == MediaKindAudio {
		return MediaKindVideo
	}
	return MediaKindAudio
}

// Track identity is ID but the same ID may be queued twice, so queue slots are addressed by index.
type Track struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	AddedBy   string    `json:"addedBy"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Duration  string    `json:"duration,omitempty"`
	MediaKind MediaKind `json:"mediaKind"`
}
