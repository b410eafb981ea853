package environ

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Location describes the address the catalog frontend is reached on, as the
// client sees it. Port is empty when the client used the scheme default.
type Location struct {
	Scheme   string
	Hostname string
	Port     string
}

// Provider reports the location the frontend is served from, so topology
// detection stays testable without a live deployment.
type Provider interface {
	Location() (Location, error)
}

// StaticProvider always reports the same location.
type StaticProvider struct {
	loc Location
}

// NewStatic returns a provider pinned to the given location.
func NewStatic(loc Location) *StaticProvider {
	return &StaticProvider{loc: loc}
}

// Location implements Provider.
func (p *StaticProvider) Location() (Location, error) {
	return p.loc, nil
}

// FromURL parses a frontend address such as "http://localhost:5015" into a
// Location.
func FromURL(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse location %q: %w", raw, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return Location{}, fmt.Errorf("location %q: unsupported scheme %q", raw, u.Scheme)
	}

	if u.Hostname() == "" {
		return Location{}, fmt.Errorf("location %q: missing hostname", raw)
	}

	return Location{
		Scheme:   u.Scheme,
		Hostname: u.Hostname(),
		Port:     u.Port(),
	}, nil
}

// Host returns the hostname[:port] form of the location.
func (l Location) Host() string {
	if l.Port == "" {
		return l.Hostname
	}
	return net.JoinHostPort(l.Hostname, l.Port)
}

// Origin returns the scheme://host[:port] form of the location, without a
// trailing slash.
func (l Location) Origin() string {
	return fmt.Sprintf("%s://%s", l.Scheme, l.Host())
}

// IsLoopback reports whether the location points at the local machine.
func (l Location) IsLoopback() bool {
	host := strings.ToLower(l.Hostname)
	if host == "localhost" {
		return true
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}

	return false
}
