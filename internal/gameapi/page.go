package gameapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var ErrNoColor = errors.New("game page does not carry the assigned color")

// parseHiddenColor finds <input id="hidden-color" value="w|b"> in the game page.
func parseHiddenColor(page []byte) (string, error) {
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("parse game page: %w", err)
			}
			return "", ErrNoColor
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "input" {
				continue
			}
			var id, value string
			for _, a := range tok.Attr {
				switch a.Key {
				case "id":
					id = a.Val
				case "value":
					value = a.Val
				}
			}
			if id != "hidden-color" {
				continue
			}
			v := strings.ToLower(strings.TrimSpace(value))
			if v != "w" && v != "b" {
				return "", fmt.Errorf("%w: %q", ErrNoColor, value)
			}
			return v, nil
		}
	}
}
