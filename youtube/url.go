package youtube

import "net/url"

func isYouTubeHost(host string) bool {
	return host == "youtube.com" || host == "www.youtube.com"
}

// ExtractCommentID returns the lc query parameter of a youtube.com link, or
// "" when raw is not such a link.
func ExtractCommentID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !isYouTubeHost(u.Hostname()) {
		return ""
	}
	return u.Query().Get("lc")
}

// ValidateURL reports whether raw is a youtube.com link carrying an lc
// parameter, empty or not.
func ValidateURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !isYouTubeHost(u.Hostname()) {
		return false
	}
	return u.Query().Has("lc")
}
