// Package content splits post text into plain text, link and hashtag
// segments. The output is plain data; rendering is left to the caller.
package content

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type SegmentType string

const (
	SegmentText    SegmentType = "text"
	SegmentLink    SegmentType = "link"
	SegmentHashtag SegmentType = "hashtag"
)

// HashtagPath is the feed route a hashtag links to.
const HashtagPath = "/feeds"

type Segment struct {
	Type SegmentType `json:"type"`
	Text string      `json:"text"`
	Href string      `json:"href,omitempty"`
}

// A link starts with a scheme or "www." and a hashtag with '#', so the two
// alternatives never compete for the same start position.
var tokenPattern = regexp.MustCompile(`(?i:https?://|www\.)\S+|#[\p{L}\p{N}_]+`)

const trailingPunct = ".,!?;:'\""

// Parse returns the segments of text in order. Concatenating their Text
// fields yields text again. Empty input yields no segments.
func Parse(text string) []Segment {
	if text == "" {
		return nil
	}
	var segments []Segment
	last := 0
	for _, loc := range tokenPattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		var seg Segment
		if text[start] == '#' {
			if !hashtagBoundary(text, start) {
				continue
			}
			tag := text[start+1 : end]
			seg = Segment{Type: SegmentHashtag, Text: text[start:end], Href: HashtagHref(tag)}
		} else {
			link := trimLink(text[start:end])
			if len(link) <= schemeLength(link) {
				continue
			}
			end = start + len(link)
			seg = Segment{Type: SegmentLink, Text: text[start:end], Href: linkHref(text[start:end])}
		}
		if start > last {
			segments = append(segments, Segment{Type: SegmentText, Text: text[last:start]})
		}
		segments = append(segments, seg)
		last = end
	}
	if last < len(text) {
		segments = append(segments, Segment{Type: SegmentText, Text: text[last:]})
	}
	return segments
}

// Join concatenates the text of segments.
func Join(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Hashtags returns the distinct lowercase tags of text in order of first use.
func Hashtags(text string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, seg := range Parse(text) {
		if seg.Type != SegmentHashtag {
			continue
		}
		tag := strings.ToLower(strings.TrimPrefix(seg.Text, "#"))
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func HashtagHref(tag string) string {
	return HashtagPath + "?hashtag=" + url.QueryEscape(tag)
}

// hashtagBoundary reports whether the '#' at i starts a hashtag, i.e. it is
// not glued to a preceding word ("a#b" or "&#39;").
func hashtagBoundary(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '&' || r == '/')
}

func trimLink(link string) string {
	for len(link) > 0 {
		c := link[len(link)-1]
		switch {
		case strings.IndexByte(trailingPunct, c) >= 0:
		case c == ')' && strings.Count(link, "(") < strings.Count(link, ")"):
		default:
			return link
		}
		link = link[:len(link)-1]
	}
	return link
}

func schemeLength(link string) int {
	if i := strings.Index(link, "://"); i >= 0 {
		return i + 3
	}
	return len("www.")
}

func linkHref(link string) string {
	if strings.HasPrefix(strings.ToLower(link), "www.") {
		return "https://" + link
	}
	return link
}
