package validation

import (
	"errors"
	"net/url"
	"strings"
)

var (
	ErrEmptyURL          = errors.New("URL cannot be empty")
	ErrInvalidURL        = errors.New("invalid URL format")
	ErrSchemeNotAllowed  = errors.New("URL scheme not allowed")
	ErrMissingHost       = errors.New("URL must have a valid host")
	ErrHostNotAllowed    = errors.New("URL host not allowed")
	ErrUnexpectedURLPart = errors.New("URL must not carry a query or fragment")
)

// URLValidator checks service URLs such as the inference endpoint and the
// public base URL used for artifact links
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates an http(s) URL validator. With no allowed hosts
// every host is accepted.
func NewURLValidator(allowedHosts ...string) *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   allowedHosts,
	}
}

// ValidateURL validates an absolute http(s) URL without query or fragment
func (v *URLValidator) ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyURL
	}

	parsedURL, err := url.Parse(raw)
	if err != nil {
		return errors.Join(ErrInvalidURL, err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return ErrSchemeNotAllowed
	}

	if parsedURL.Host == "" {
		return ErrMissingHost
	}

	if !v.isHostAllowed(parsedURL.Hostname()) {
		return ErrHostNotAllowed
	}

	if parsedURL.RawQuery != "" || parsedURL.Fragment != "" {
		return ErrUnexpectedURLPart
	}

	return nil
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}
