// Package urls computes the public URLs the telephony provider and chat
// users use to reach files served by the relay.
package urls

import (
	"strings"

	"hotline-relay/internal/config"
)

type Kind string

const (
	KindAsset     Kind = "asset"
	KindRecording Kind = "recording"
)

// dir is the route prefix each kind is served under.
func (k Kind) dir() string {
	if k == KindRecording {
		return "recordings"
	}
	return "assets"
}

type Builder struct {
	IsProxied  bool
	Host       string
	Port       string
	SSLEnabled bool
}

func NewBuilder(cfg config.ServerConfig) Builder {
	return Builder{
		IsProxied:  cfg.IsProxied,
		Host:       cfg.Host,
		Port:       cfg.Port,
		SSLEnabled: cfg.SSLEnabled,
	}
}

// Build returns the absolute URL for path. It never fails.
//
// Behind a proxy the URL is always https without a port. Asset URLs otherwise
// always carry the port; recording URLs drop it when it is the scheme default.
func (b Builder) Build(kind Kind, path string) string {
	path = strings.TrimPrefix(path, "/")
	if b.IsProxied {
		return "https://" + b.Host + "/" + kind.dir() + "/" + path
	}
	if kind == KindAsset {
		return b.scheme() + "://" + b.Host + ":" + b.Port + "/" + kind.dir() + "/" + path
	}
	return b.Origin() + "/" + kind.dir() + "/" + path
}

func (b Builder) AssetURL(path string) string {
	return b.Build(KindAsset, path)
}

func (b Builder) RecordingURL(path string) string {
	return b.Build(KindRecording, path)
}

// Origin is the public scheme://host[:port] of the relay, with the port
// elided when it is the scheme default.
func (b Builder) Origin() string {
	if b.IsProxied {
		return "https://" + b.Host
	}
	scheme := b.scheme()
	if b.Port == "" || b.Port == defaultPort(scheme) {
		return scheme + "://" + b.Host
	}
	return scheme + "://" + b.Host + ":" + b.Port
}

func (b Builder) scheme() string {
	if b.SSLEnabled {
		return "https"
	}
	return "http"
}

func defaultPort(scheme string) string {
	if scheme == "https" {
		return "443"
	}
	return "80"
}
