// Package version carries the build version shared by the server and CLI.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is set at build time:
//
//	go build -ldflags "-X github.com/TimurManjosov/pawswipe/internal/version.Version=1.2.0"
var Version = "0.0.0-dev"

// Compatible reports whether a client built at client can talk to a server
// at server. Versions must share a major; below 1.0 they must share a minor.
func Compatible(client, server string) (bool, error) {
	c, err := semver.NewVersion(client)
	if err != nil {
		return false, fmt.Errorf("client version %q: %w", client, err)
	}
	s, err := semver.NewVersion(server)
	if err != nil {
		return false, fmt.Errorf("server version %q: %w", server, err)
	}
	if c.Major() != s.Major() {
		return false, nil
	}
	if c.Major() == 0 && c.Minor() != s.Minor() {
		return false, nil
	}
	return true, nil
}
