package storage

type Kind string

const (
	KindPhoto Kind = "photo"
	KindVoice Kind = "voice"
)

const (
	maxPhotoBytes = 10 << 20
	maxVoiceBytes = 5 << 20
)

var allowedTypes = map[Kind][]string{
	KindPhoto: {"image/jpeg", "image/png", "image/gif", "image/webp"},
	// m4a and webm voice notes are sniffed under their container types
	KindVoice: {"audio/mpeg", "audio/mp4", "audio/x-m4a", "audio/ogg", "audio/wav", "audio/webm", "video/webm"},
}

var subdirs = map[Kind]string{
	KindPhoto: "messages/photos",
	KindVoice: "messages/voice",
}

func (k Kind) Valid() bool {
	_, ok := allowedTypes[k]
	return ok
}

func (k Kind) maxBytes() int {
	if k == KindPhoto {
		return maxPhotoBytes
	}
	return maxVoiceBytes
}

// Object is a stored attachment.
type Object struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Kind     Kind   `json:"kind"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
}
