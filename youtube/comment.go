// Package youtube fetches single comments from the YouTube Data API and
// resolves comment identifiers from shared comment links.
package youtube

import (
	"time"
)

// Comment is one item of a comments.list response. Its JSON form is what
// card URLs carry in their data parameter.
type Comment struct {
	Kind    string  `json:"kind,omitempty"`
	Etag    string  `json:"etag,omitempty"`
	ID      string  `json:"id,omitempty"`
	Snippet Snippet `json:"snippet"`
}

// Snippet holds the fields a card shows. TextDisplay may contain the small
// HTML subset YouTube uses for formatted comments.
type Snippet struct {
	AuthorDisplayName     string `json:"authorDisplayName"`
	AuthorProfileImageURL string `json:"authorProfileImageUrl"`
	AuthorChannelURL      string `json:"authorChannelUrl,omitempty"`
	TextDisplay           string `json:"textDisplay"`
	TextOriginal          string `json:"textOriginal,omitempty"`
	PublishedAt           string `json:"publishedAt"`
	UpdatedAt             string `json:"updatedAt,omitempty"`
	LikeCount             int64  `json:"likeCount"`
}

// Published parses PublishedAt. ok is false when it is empty or malformed.
func (s Snippet) Published() (t time.Time, ok bool) {
	t, err := time.Parse(time.RFC3339, s.PublishedAt)
	return t, err == nil
}

// ListResponse mirrors the upstream comments.list envelope.
type ListResponse struct {
	Kind     string    `json:"kind,omitempty"`
	Etag     string    `json:"etag,omitempty"`
	Items    []Comment `json:"items"`
	PageInfo *PageInfo `json:"pageInfo,omitempty"`
}

type PageInfo struct {
	TotalResults   int64 `json:"totalResults"`
	ResultsPerPage int64 `json:"resultsPerPage"`
}

// First returns the first item, if any.
func (r *ListResponse) First() (Comment, bool) {
	if r == nil || len(r.Items) == 0 {
		return Comment{}, false
	}
	return r.Items[0], true
}
