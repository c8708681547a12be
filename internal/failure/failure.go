// Package failure defines the error kinds wslrun reports to the user.
// Every failure surfaces as exactly one line of text on stdout plus an
// exit code; the underlying cause is kept for debug logging only.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindCapabilityUnavailable
	KindConfigMalformed
	KindRegistryUnavailable
	KindLinkRejected
	KindLinkFailed
	KindLaunchFailed
)

func (k Kind) String() string {
	switch k {
	case KindCapabilityUnavailable:
		return "capability-unavailable"
	case KindConfigMalformed:
		return "configuration-malformed"
	case KindRegistryUnavailable:
		return "registry-unavailable"
	case KindLinkRejected:
		return "link-rejected"
	case KindLinkFailed:
		return "link-failed"
	case KindLaunchFailed:
		return "launch-failed"
	default:
		return "unknown"
	}
}

// Site names the exact place a failure happened, so that two failures of
// the same kind stay distinguishable.
type Site string

const (
	SiteCapabilityLoad   Site = "capability-load"
	SiteConfigOpen       Site = "config-open"
	SiteConfigValue      Site = "config-value"
	SiteRegistryOpen     Site = "registry-open"
	SiteDefaultQuery     Site = "default-query"
	SiteDefaultType      Site = "default-type"
	SiteDistributionOpen Site = "distribution-open"
	SiteNameQuery        Site = "name-query"
	SiteNameType         Site = "name-type"
	SiteLinkName         Site = "link-name"
	SiteLinkCreate       Site = "link-create"
	SiteLaunch           Site = "launch"
)

// Error is a user-facing failure. Error() returns the single line printed
// to the user; Err holds the cause, if any.
type Error struct {
	Kind    Kind
	Site    Site
	Message string
	Err     error
}

// New creates an Error without a cause.
func New(kind Kind, site Site, format string, args ...any) *Error {
	return &Error{Kind: kind, Site: site, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that carries cause.
func Wrap(cause error, kind Kind, site Site, format string, args ...any) *Error {
	return &Error{Kind: kind, Site: site, Message: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// SiteOf returns the Site of the first *Error in err's chain, or "".
func SiteOf(err error) Site {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Site
	}
	return ""
}
