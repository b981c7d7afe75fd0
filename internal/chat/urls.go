package chat

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(
	`http[s]?://(?:[a-zA-Z0-9]|[$\-_@.&+]|[!*\\(\\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+|` +
		`www\.(?:[a-zA-Z0-9]|[$\-_@.&+]|[!*\\(\\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// DetectURLs finds http/https/www links in a message. Bare www links
// get an https scheme so they can be fetched.
func DetectURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	seen := make(map[string]bool)
	var out []string
	for _, m := range matches {
		if strings.HasPrefix(m, "www.") {
			m = "https://" + m
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
