// Package useragent is the pluggable user-agent parsing adapter the
// redirect dispatcher consults before emitting a HitEvent.
package useragent

import (
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
)

// Result is what a successful parse contributes to a HitEvent.
type Result struct {
	DeviceType string
	Browser    string
	OS         string
}

// Parser classifies a User-Agent header value.
type Parser interface {
	Parse(ua string) (Result, bool)
}

// noop is the zero-configuration Parser: always a miss.
type noop struct{}

func (noop) Parse(string) (Result, bool) { return Result{}, false }

// NoOp is the Parser the server wires into the redirect dispatcher; it
// never classifies a user agent.
var NoOp Parser = noop{}

// UAParser wraps ua-parser/uap-go's regex-driven classifier.
type UAParser struct {
	parser *uaparser.Parser
}

// New loads the ua-parser regex definitions from regexesPath (the
// upstream ua-parser/uap-core regexes.yaml format).
func New(regexesPath string) (*UAParser, error) {
	parser, err := uaparser.New(regexesPath)
	if err != nil {
		return nil, err
	}
	return &UAParser{parser: parser}, nil
}

func (p *UAParser) Parse(ua string) (Result, bool) {
	if strings.TrimSpace(ua) == "" {
		return Result{}, false
	}
	client := p.parser.Parse(ua)
	if client == nil {
		return Result{}, false
	}

	deviceType := "desktop"
	if client.Device != nil {
		switch strings.ToLower(client.Device.Family) {
		case "", "other":
			deviceType = "desktop"
		case "spider":
			deviceType = "bot"
		default:
			deviceType = "mobile"
		}
	}

	var browser, os string
	if client.UserAgent != nil {
		browser = client.UserAgent.Family
	}
	if client.Os != nil {
		os = client.Os.Family
	}
	if browser == "" && os == "" {
		return Result{}, false
	}
	return Result{DeviceType: deviceType, Browser: browser, OS: os}, true
}
