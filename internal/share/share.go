// Package share builds canonical share links for wishlists and detects the
// shared viewing mode. A shared view renders read-only with a purchase
// action; owner controls are suppressed by the handler layer.
package share

import (
	"net/url"
	"strings"
)

// Marker is the query parameter that switches a wishlist page into shared
// mode. Consumers must send shared=true exactly; any other value is an
// ordinary owner view.
const Marker = "shared"

// BuildLink returns the canonical share URL for a wishlist:
// <origin>/wishlist/<raw-id>?shared=true. The id is embedded as given, not
// re-encoded, and the result is identical across calls for the same inputs.
func BuildLink(origin, wishlistID string) string {
	return strings.TrimSuffix(origin, "/") + "/wishlist/" + wishlistID + "?" + Marker + "=true"
}

// IsSharedView reports whether the query carries the shared-mode marker with
// the literal value "true".
func IsSharedView(query url.Values) bool {
	return query.Get(Marker) == "true"
}

// Targets holds prefilled social share intent URLs for a wishlist link.
type Targets struct {
	WhatsApp string `json:"whatsapp"`
	X        string `json:"x"`
}

// ShareTargets derives social intent URLs from a share link. The link is
// query-escaped into each intent's text parameter.
func ShareTargets(link, title string) Targets {
	text := link
	if title != "" {
		text = "Check out my wishlist \"" + title + "\": " + link
	}
	escaped := url.QueryEscape(text)
	return Targets{
		WhatsApp: "https://wa.me/?text=" + escaped,
		X:        "https://twitter.com/intent/tweet?text=" + escaped,
	}
}
