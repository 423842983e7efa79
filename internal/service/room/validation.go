package room

import (
	"regexp"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var RoomCodeRule = []validation.Rule{
	validation.Required,
	validation.Match(regexp.MustCompile("^[A-Z0-9]{6}$")),
}

var NameRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, 50),
}

var AvatarRule = []validation.Rule{
	is.URL,
}

var TrackIDRule = []validation.Rule{
	validation.Required,
	validation.Match(regexp.MustCompile("^[a-zA-Z0-9_-]{11}$")),
}

var KindRule = []validation.Rule{
	validation.Required,
	validation.In(domain.MediaKindAudio, domain.MediaKindVideo),
}

var MessageTextRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, 1000),
}
