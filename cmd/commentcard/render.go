package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/eringen/commentcard"
	"github.com/eringen/commentcard/card"
	"github.com/eringen/commentcard/youtube"
)

// loadComment reads the comment from a JSON file or fetches it by URL.
func loadComment(ctx context.Context, app *commentcard.App, path, rawURL string) (youtube.Comment, error) {
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return youtube.Comment{}, err
		}
		return decodeCommentFile(b)
	}
	id := youtube.ExtractCommentID(rawURL)
	if id == "" {
		return youtube.Comment{}, fmt.Errorf("no comment id in %q", rawURL)
	}
	list, err := app.Comments.FetchComment(ctx, id)
	if err != nil {
		return youtube.Comment{}, err
	}
	c, ok := list.First()
	if !ok {
		return youtube.Comment{}, errors.New(youtube.MsgNotFound)
	}
	return c, nil
}

// decodeCommentFile accepts either a comments.list response or one comment.
func decodeCommentFile(b []byte) (youtube.Comment, error) {
	var list youtube.ListResponse
	if err := json.Unmarshal(b, &list); err == nil {
		if c, ok := list.First(); ok {
			return c, nil
		}
	}
	var c youtube.Comment
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse comment: %w", err)
	}
	if c.Snippet.TextDisplay == "" && c.Snippet.AuthorDisplayName == "" {
		return c, errors.New("parse comment: no snippet")
	}
	return c, nil
}

func parseStyle(raw string) (card.StyleConfig, error) {
	q, err := url.ParseQuery(raw)
	if err != nil {
		return card.StyleConfig{}, fmt.Errorf("parse style: %w", err)
	}
	return card.ParseStyle(q, card.DefaultStyle()), nil
}
