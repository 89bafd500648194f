package utils

import "net/url"

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
// Absolute inputs are returned unchanged.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(relative)
	if err != nil {
		return "", err
	}
	if base == nil {
		return relURL.String(), nil
	}
	return base.ResolveReference(relURL).String(), nil
}
