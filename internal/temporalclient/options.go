// Package temporalclient loads Temporal client options for the codex
// binaries via the SDK's envconfig contrib package, so connection settings
// come from the standard places (TEMPORAL_ADDRESS, TEMPORAL_NAMESPACE,
// TEMPORAL_API_KEY, TLS vars, or a config.toml).
//
// One wrinkle: TEMPORAL_ADDRESS is accepted in URL form
// (http://localhost:7233) as well as the bare host:port the Go SDK wants.
// ResolveHostPort normalizes between the two.
package temporalclient

import (
	"net/url"
	"strings"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/contrib/envconfig"
)

// LoadClientOptions loads Temporal client options using the envconfig
// system: environment variables, then config.toml (working directory or
// TEMPORAL_CONFIG_FILE), then defaults. The resulting host:port is passed
// through ResolveHostPort so URL-form addresses work.
//
// Non-empty hostPortOverride / namespaceOverride win over everything else.
func LoadClientOptions(hostPortOverride, namespaceOverride string) (client.Options, error) {
	opts, err := envconfig.LoadClientOptions(envconfig.LoadClientOptionsRequest{})
	if err != nil {
		return client.Options{}, err
	}

	opts.HostPort = ResolveHostPort(opts.HostPort)
	if hostPortOverride != "" {
		opts.HostPort = ResolveHostPort(hostPortOverride)
	}
	if namespaceOverride != "" {
		opts.Namespace = namespaceOverride
	}

	return opts, nil
}

// MustLoadClientOptions is like LoadClientOptions but panics on error.
func MustLoadClientOptions(hostPortOverride, namespaceOverride string) client.Options {
	opts, err := LoadClientOptions(hostPortOverride, namespaceOverride)
	if err != nil {
		panic("failed to load Temporal client options: " + err.Error())
	}
	return opts
}

// ResolveHostPort normalizes a Temporal server address to the host:port form
// the SDK dials. URL forms (http://localhost:7233) have their scheme and path
// stripped; bare host:port values pass through unchanged.
func ResolveHostPort(address string) string {
	address = strings.TrimSpace(address)
	if address == "" || !strings.Contains(address, "://") {
		return address
	}
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return address
	}
	return u.Host
}
