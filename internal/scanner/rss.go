package scanner

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// rssFeed is the minimal RSS 2.0 shape the scanner needs.
type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
}

// parseRSS decodes an RSS document. Feeds in the wild are frequently not
// valid UTF-8-declared XML, so the decoder is permissive about charset.
func parseRSS(body string) (*rssFeed, error) {
	decoder := xml.NewDecoder(strings.NewReader(body))
	decoder.Strict = false
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var feed rssFeed
	if err := decoder.Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to parse RSS: %w", err)
	}
	return &feed, nil
}

// tagPattern strips markup from RSS descriptions, which commonly embed
// HTML fragments.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripTags removes markup and unescapes nothing; the bonus pattern does
// not depend on entities.
func stripTags(s string) string {
	return normalizeSpace(tagPattern.ReplaceAllString(s, " "))
}
