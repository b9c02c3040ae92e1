// Package urlcheck implements the publish precondition for recipe
// thumbnails: a conservative allow-list judgement on the URL itself, not a
// network probe. A thumbnail that fails here would 404 or leak a private
// asset if handed to the platform, so the dispatcher rejects the item
// before spending a caption-generation call on it.
package urlcheck

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// publicPathMarker is the path segment that identifies an asset served from
// the public storage bucket. Anything else requires auth to fetch and is
// invisible to the platform's image scraper.
const publicPathMarker = "/public/"

// CheckPublicThumbnail returns nil when the URL is judged publicly
// reachable: it parses, uses https, does not target a loopback or
// unspecified host, and carries the public-asset path marker.
func CheckPublicThumbnail(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("thumbnail URL is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("thumbnail URL does not parse: %w", err)
	}

	if u.Scheme != "https" {
		return fmt.Errorf("thumbnail URL scheme %q is not https", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("thumbnail URL has no host")
	}
	if isLoopbackHost(host) {
		return fmt.Errorf("thumbnail URL host %q is not publicly routable", host)
	}

	if !strings.Contains(u.Path, publicPathMarker) {
		return fmt.Errorf("thumbnail URL path %q is not a public asset", u.Path)
	}

	return nil
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified()
	}
	return false
}
