// Package config loads and normalizes dezap's configuration: a single JSON
// file, whose path $DEZAP_CONFIG may override, following the same
// resolver -> reader -> writer -> manager layering the teacher uses for its
// own JSON configuration.
package config

import "time"

// Config is the full set of options an operator may set for a dezap
// endpoint. Every field except Peer.Password corresponds to a key in
// spec.md §6; Peer.Password is the password this endpoint presents when it
// dials out.
type Config struct {
	Listen    ListenConfig    `json:"listen"`
	Peer      PeerConfig      `json:"peer"`
	Identity  IdentityConfig  `json:"identity"`
	Paths     PathsConfig     `json:"paths"`
	Limits    LimitsConfig    `json:"limits"`
	TLS       TLSConfig       `json:"tls"`
	Discovery DiscoveryConfig `json:"discovery"`
	UI        UIConfig        `json:"ui"`
	Logging   LoggingConfig   `json:"logging"`
}

type ListenConfig struct {
	BindAddr string  `json:"bind_addr"`
	Password *string `json:"password,omitempty"`
}

type PeerConfig struct {
	DefaultPeer *string `json:"default_peer,omitempty"`
	Password    *string `json:"password,omitempty"`
}

type IdentityConfig struct {
	Username string `json:"username"`
}

type PathsConfig struct {
	DownloadDir string  `json:"download_dir"`
	ChatLog     *string `json:"chat_log,omitempty"`
	HistoryDir  string  `json:"history_dir"`
	PeersFile   string  `json:"peers_file"`
}

type LimitsConfig struct {
	MaxMessageBytes uint32 `json:"max_message_bytes"`
	MaxFileBytes    uint64 `json:"max_file_bytes"`
	ChunkSizeBytes  uint32 `json:"chunk_size_bytes"`
}

type TLSConfig struct {
	CertPath      *string `json:"cert_path,omitempty"`
	KeyPath       *string `json:"key_path,omitempty"`
	InsecureLocal bool    `json:"insecure_local"`
	ServerName    string  `json:"server_name"`
}

type DiscoveryConfig struct {
	Enabled        bool    `json:"enabled"`
	Port           uint16  `json:"port"`
	ResponseTTLMs  uint64  `json:"response_ttl_ms"`
	Magic          string  `json:"magic"`
	Broadcast      *string `json:"broadcast,omitempty"`
}

func (d DiscoveryConfig) ResponseTTL() time.Duration {
	ms := d.ResponseTTLMs
	if ms < 100 {
		ms = 100
	}
	return time.Duration(ms) * time.Millisecond
}

type UIConfig struct {
	ShowTimestamps bool   `json:"show_timestamps"`
	Accent         string `json:"accent"`
}

type LoggingConfig struct {
	Level string `json:"level"`
}

// Default returns the configuration new installs start from, mirroring
// original_source/src/config.rs's AppConfig::default().
func Default() Config {
	return Config{
		Listen: ListenConfig{
			BindAddr: "0.0.0.0:5000",
		},
		Identity: IdentityConfig{
			Username: "dezapster",
		},
		Paths: PathsConfig{
			DownloadDir: "~/.local/share/dezap/downloads",
			HistoryDir:  "~/.local/share/dezap/history",
			PeersFile:   "~/.config/dezap/peers.json",
		},
		Limits: LimitsConfig{
			MaxMessageBytes: 16 * 1024,
			MaxFileBytes:    1 * 1024 * 1024 * 1024,
			ChunkSizeBytes:  64 * 1024,
		},
		TLS: TLSConfig{
			InsecureLocal: true,
			ServerName:    "dezap.local",
		},
		Discovery: DiscoveryConfig{
			Enabled:       true,
			Port:          54095,
			ResponseTTLMs: 2000,
			Magic:         "dezap-discovery",
		},
		UI: UIConfig{
			ShowTimestamps: true,
			Accent:         "crimson",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
