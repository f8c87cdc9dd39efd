// Package config defines process configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Layer an optional YAML file and TIERING_-prefixed env vars on top.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// StartggEndpoint is the GraphQL endpoint of the tournament data source.
	StartggEndpoint string `koanf:"startgg_endpoint"`

	// StartggToken authenticates data source requests.
	StartggToken string `koanf:"startgg_token"`

	// StartggRequestsPerMinute throttles data source requests.
	StartggRequestsPerMinute int `koanf:"startgg_requests_per_minute"`

	// GeocoderEndpoint is the reverse-geocoding service base URL.
	GeocoderEndpoint string `koanf:"geocoder_endpoint"`

	// GeocoderUserAgent identifies this tool to the geocoding service.
	GeocoderUserAgent string `koanf:"geocoder_user_agent"`

	// GeocoderRetries bounds reverse-geocoding attempts before giving up.
	GeocoderRetries int `koanf:"geocoder_retries"`

	// Reference table paths, loaded once at startup.
	PlayersFile      string `koanf:"players_file"`
	InvitationalFile string `koanf:"invitational_file"`
	TagsFile         string `koanf:"tags_file"`
	RegionsFile      string `koanf:"regions_file"`

	// OutputDir receives per-event reports and summary files.
	OutputDir string `koanf:"output_dir"`

	// MetricsAddr exposes /metrics during long runs; empty disables it.
	MetricsAddr string `koanf:"metrics_addr"`

	// SearchVideogameID filters discovery to one game.
	SearchVideogameID int64 `koanf:"search_videogame_id"`
}

// New creates a Config populated with defaults. File paths mirror the
// reference sheet export names so a plain checkout works unconfigured.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		StartggEndpoint:          "https://api.start.gg/gql/alpha",
		StartggRequestsPerMinute: 75,
		GeocoderEndpoint:         "https://nominatim.openstreetmap.org",
		GeocoderUserAgent:        "tiering",
		GeocoderRetries:          5,
		PlayersFile:              "ultrank_players.csv",
		InvitationalFile:         "ultrank_invitational.csv",
		TagsFile:                 "ultrank_tags.csv",
		RegionsFile:              "ultrank_regions.csv",
		OutputDir:                "tts_values",
		MetricsAddr:              "",
		SearchVideogameID:        1386,
	}
}
