// Package geoip is the pluggable geo-IP lookup adapter the redirect
// dispatcher consults before emitting a HitEvent. It is deliberately
// optional: absent a configured database it reports every lookup as a
// miss rather than failing ingestion or redirects.
package geoip

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Result is what a successful lookup contributes to a HitEvent.
type Result struct {
	Country string
	City    string
}

// Lookup resolves a client IP to a country/city, or reports ok=false when
// it cannot (no database loaded, IP unparseable, or no match).
type Lookup interface {
	Lookup(ip string) (Result, bool)
}

// noop is the zero-configuration Lookup: always a miss. The redirect
// dispatcher treats a miss exactly like the spec's "optional country" and
// "optional city" fields — it simply omits them from the HitEvent.
type noop struct{}

func (noop) Lookup(string) (Result, bool) { return Result{}, false }

// NoOp is the default adapter used when GEOIP_DB_PATH is unset.
var NoOp Lookup = noop{}

// MaxMind wraps a MaxMind GeoLite2/GeoIP2 City database.
type MaxMind struct {
	reader *geoip2.Reader
}

// Open loads a MaxMind City database from path. Callers should fall back
// to NoOp if this returns an error, per the adapter's fail-open contract.
func Open(path string) (*MaxMind, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &MaxMind{reader: reader}, nil
}

// Close releases the underlying memory-mapped database file.
func (m *MaxMind) Close() error {
	return m.reader.Close()
}

func (m *MaxMind) Lookup(ip string) (Result, bool) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Result{}, false
	}
	record, err := m.reader.City(parsed)
	if err != nil {
		return Result{}, false
	}
	country := record.Country.IsoCode
	var city string
	if name, ok := record.City.Names["en"]; ok {
		city = name
	}
	if country == "" && city == "" {
		return Result{}, false
	}
	return Result{Country: country, City: city}, true
}
