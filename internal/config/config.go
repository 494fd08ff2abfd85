package config

import "time"

// Config holds server and client configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	CORSOrigins       []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	WSRateLimit       int           `mapstructure:"ws_rate_limit" yaml:"ws_rate_limit"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`

	LiveKit LiveKitConfig `mapstructure:"livekit" yaml:"livekit"`
	Client  ClientConfig  `mapstructure:"client" yaml:"client"`
	Call    CallConfig    `mapstructure:"call" yaml:"call"`
}

// LiveKitConfig configures the media backend. An empty APIKey disables it.
type LiveKitConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	APISecret string `mapstructure:"api_secret" yaml:"api_secret"`
	URL       string `mapstructure:"url" yaml:"url"`
}

// Enabled reports whether credentials are configured.
func (c LiveKitConfig) Enabled() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// ClientConfig configures the headless call client.
type ClientConfig struct {
	ServerURL    string `mapstructure:"server_url" yaml:"server_url"`
	Token        string `mapstructure:"token" yaml:"token"`
	Account      string `mapstructure:"account" yaml:"account"`
	Nickname     string `mapstructure:"nickname" yaml:"nickname"`
	Card         int    `mapstructure:"card" yaml:"card"`
	AutoAccept   bool   `mapstructure:"auto_accept" yaml:"auto_accept"`
	VideoProfile string `mapstructure:"video_profile" yaml:"video_profile"`
}

// CallConfig holds call timings and thresholds.
type CallConfig struct {
	InviteTimeout      time.Duration `mapstructure:"invite_timeout" yaml:"invite_timeout"`
	StreamTimeout      time.Duration `mapstructure:"stream_timeout" yaml:"stream_timeout"`
	LeaveGrace         time.Duration `mapstructure:"leave_grace" yaml:"leave_grace"`
	BadNetworkMaxCount int           `mapstructure:"bad_network_max_count" yaml:"bad_network_max_count"`
	NoticeInterval     time.Duration `mapstructure:"notice_interval" yaml:"notice_interval"`
	PoorNetworkLevel   int           `mapstructure:"poor_network_level" yaml:"poor_network_level"`
	PoorNetworkNotice  time.Duration `mapstructure:"poor_network_notice" yaml:"poor_network_notice"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "wirecall.db",
		CORSOrigins:       []string{"*"},
		WSRateLimit:       60,
		JWTSecret:         "change-me",
		JWTIssuer:         "wirecall",
		TokenTTL:          24 * time.Hour,
		LiveKit: LiveKitConfig{
			URL: "ws://localhost:7880",
		},
		Client: ClientConfig{
			ServerURL:    "http://localhost:8080",
			Card:         1,
			VideoProfile: "480p_2",
		},
		Call: CallConfig{
			InviteTimeout:      120 * time.Second,
			StreamTimeout:      15 * time.Second,
			LeaveGrace:         time.Second,
			BadNetworkMaxCount: 5,
			NoticeInterval:     500 * time.Millisecond,
			PoorNetworkLevel:   4,
			PoorNetworkNotice:  2 * time.Second,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Only the flag-overridable fields are considered.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.Client.ServerURL != "" {
		c.Client.ServerURL = other.Client.ServerURL
	}
	if other.Client.Token != "" {
		c.Client.Token = other.Client.Token
	}
	if other.Client.Account != "" {
		c.Client.Account = other.Client.Account
	}
	if other.Client.AutoAccept {
		c.Client.AutoAccept = true
	}
}
