package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
)

// ICEServers turns the ice section into the list advertised to browsers.
// STUN and TURN URLs become one entry each; TURN requires credentials.
func (c *Config) ICEServers() ([]webrtc.ICEServer, error) {
	var servers []webrtc.ICEServer

	if stunList := trimAll(c.ICE.StunURLs); len(stunList) > 0 {
		if err := validateURLs(stunList, stun.SchemeTypeSTUN, stun.SchemeTypeSTUNS); err != nil {
			return nil, fmt.Errorf("ice.stun_urls: %w", err)
		}
		servers = append(servers, webrtc.ICEServer{URLs: stunList})
	}

	if turnList := trimAll(c.ICE.TurnURLs); len(turnList) > 0 {
		if err := validateURLs(turnList, stun.SchemeTypeTURN, stun.SchemeTypeTURNS); err != nil {
			return nil, fmt.Errorf("ice.turn_urls: %w", err)
		}
		username := strings.TrimSpace(c.ICE.TurnUsername)
		credential := strings.TrimSpace(c.ICE.TurnCredential)
		if username == "" || credential == "" {
			return nil, errors.New("ice.turn_username/ice.turn_credential: both must be set when ice.turn_urls is set")
		}
		servers = append(servers, webrtc.ICEServer{
			URLs:       turnList,
			Username:   username,
			Credential: credential,
		})
	}

	return servers, nil
}

func validateURLs(urls []string, allowed ...stun.SchemeType) error {
	for _, raw := range urls {
		u, err := stun.ParseURI(raw)
		if err != nil {
			return fmt.Errorf("%q: %w", raw, err)
		}
		ok := false
		for _, s := range allowed {
			if u.Scheme == s {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%q: unexpected scheme %s", raw, u.Scheme)
		}
	}
	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
