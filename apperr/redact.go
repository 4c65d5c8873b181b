package apperr

import (
	"errors"
	"net/url"
)

// RedactURL strips the key query parameter from a URL.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<redacted>"
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Redact removes API keys from the request URL carried by a transport
// error. Google clients pass the key as a query parameter, and *url.Error
// prints the full URL.
func Redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = RedactURL(uerr.URL)
	}
	return err
}
