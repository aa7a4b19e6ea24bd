package util

import (
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a product URL for duplicate detection:
// https scheme, lowercased host without "www.", no trailing slash, and
// tracking query parameters removed. The comparison key it produces is
// case-insensitive on the host but preserves path case, since some
// storefronts encode product ids in mixed-case path segments.
func NormalizeURL(rawURL string) (string, error) {
	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL, err
	}

	if parsedURL.Scheme == "http" {
		parsedURL.Scheme = "https"
	}
	parsedURL.Host = strings.TrimPrefix(strings.ToLower(parsedURL.Host), "www.")

	if len(parsedURL.Path) > 1 && strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path = parsedURL.Path[:len(parsedURL.Path)-1]
		// Clear RawPath so String() regenerates the path without the trailing slash
		parsedURL.RawPath = ""
	}

	queryParams := parsedURL.Query()
	trackingParams := []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "ref", "ref_", "tag", "pd_rd_r", "pd_rd_w"}
	for _, param := range trackingParams {
		if queryParams.Has(param) {
			queryParams.Del(param)
		}
	}
	parsedURL.RawQuery = queryParams.Encode()
	parsedURL.Fragment = ""
	return parsedURL.String(), nil
}

// SameProductURL reports whether two raw URLs identify the same product,
// comparing their normalized forms case-insensitively.
func SameProductURL(a, b string) bool {
	na, errA := NormalizeURL(a)
	nb, errB := NormalizeURL(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return strings.EqualFold(na, nb)
}
