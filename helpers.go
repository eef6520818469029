package commentcard

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/eringen/commentcard/card"
	"github.com/eringen/commentcard/youtube"
)

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	return u.String()
}

// CardURL is the card endpoint at cardPath for comment styled by s. The
// comment travels as JSON in the data parameter.
func CardURL(cardPath string, comment youtube.Comment, s card.StyleConfig) (string, error) {
	data, err := json.Marshal(comment)
	if err != nil {
		return "", err
	}
	q := s.Values()
	q.Set("data", string(data))
	return cardPath + "?" + q.Encode(), nil
}

// ETag identifies one rendered card. Requests that differ only in parameter
// order or spelling of defaults share a tag.
func ETag(backend string, s card.StyleConfig, comment youtube.Comment) string {
	h := sha256.New()
	h.Write([]byte(backend))
	h.Write([]byte{0})
	h.Write([]byte(s.Values().Encode()))
	h.Write([]byte{0})
	data, _ := json.Marshal(comment)
	h.Write(data)
	return `"` + hex.EncodeToString(h.Sum(nil))[:32] + `"`
}

// etagMatch reports whether an If-None-Match header covers etag.
func etagMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
		if tag == "*" || tag == etag {
			return true
		}
	}
	return false
}

// decodeComment parses the data parameter of a card request.
func decodeComment(raw string) (youtube.Comment, error) {
	var c youtube.Comment
	if strings.TrimSpace(raw) == "" {
		return c, &card.InputError{Msg: "Missing comment data"}
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return c, &card.InputError{Msg: "Invalid comment data", Err: err}
	}
	return c, nil
}
