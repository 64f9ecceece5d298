package media

import "fmt"

type Kind int

const (
	Image Kind = iota
	Audio
	Video
)

// Kinds lists every media kind in the order documents surface them.
var Kinds = []Kind{Audio, Video, Image}

func (k Kind) String() string {
	switch k {
	case Image:
		return "image"
	case Audio:
		return "audio"
	case Video:
		return "video"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ListingKey is the label used for the kind in a record's media listing.
func (k Kind) ListingKey() string {
	switch k {
	case Image:
		return "images"
	case Audio:
		return "audio_files"
	case Video:
		return "videos"
	default:
		return ""
	}
}

// AttributeKey is the document attribute holding the kind's identifiers.
func (k Kind) AttributeKey() string {
	switch k {
	case Image:
		return "images"
	case Audio:
		return "audio"
	case Video:
		return "video"
	default:
		return ""
	}
}

// Prefix is the store identifier prefix binary items of the kind live under.
func (k Kind) Prefix() string {
	switch k {
	case Image:
		return "/images/"
	case Audio:
		return "/audio/"
	case Video:
		return "/video/"
	default:
		return "/media/"
	}
}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if s == k.String() || s == k.ListingKey() || s == k.AttributeKey() {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown media kind: %s", s)
}
