// Package config loads and validates the Wheatley settings file.
//
// The file is plain key=value text (godotenv format: quoted values allowed,
// # starts a comment, blank lines ignored). The parsed Config is built once
// at startup and handed to whichever components need it; it is never mutated
// afterwards.
package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config is the full set of settings Wheatley understands. Tag names match
// the keys in the settings file verbatim.
type Config struct {
	// Credentials. discordBotToken is always required; at least one of the
	// two LLM provider keys must be set.
	DiscordBotToken string `env:"discordBotToken"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	GroqAPIKey      string `env:"GROQ_API_KEY"`

	// Model selection and sampling.
	Model         string  `env:"model" envDefault:"gpt-4o-mini"`
	GroqModel     string  `env:"groqModel" envDefault:"llama-3.1-8b-instant"`
	LMStudioModel string  `env:"lmStudioModel"`
	ModelTemp     float64 `env:"modelTemp" envDefault:"0.7"`

	// Discord.
	MainChannelID int64 `env:"mainChannelID" envDefault:"0"`

	// Notifications and weather scraping (consumed by out-of-scope jobs;
	// loaded and validated here so a typo fails at startup).
	TimeZone      string `env:"time_zone" envDefault:"America/Toronto"`
	Notifications int    `env:"notifications" envDefault:"0"`
	Location      string `env:"location"`
	WeatherURL    string `env:"weatherURL"`

	// Google custom search.
	GoogleAPIKey   string `env:"googleApiKey"`
	GoogleEngineID string `env:"googleEngineID"`

	// Local inference endpoints.
	ComfyIP      string `env:"comfyIP"`
	ComfyPort    string `env:"comfyPort"`
	LMStudioIP   string `env:"lmstudioIP"`
	LMStudioPort string `env:"lmstudioPort"`

	// ComfyUI image dimensions.
	Width  int `env:"w" envDefault:"1280"`
	Height int `env:"h" envDefault:"720"`

	// OpenSky flight tracking.
	MyLat        float64 `env:"myLAT" envDefault:"0"`
	MyLon        float64 `env:"myLON" envDefault:"0"`
	MyRadius     float64 `env:"myRADIUS" envDefault:"0"`
	FlightID     string  `env:"flight_id"`
	FlightSecret string  `env:"flight_secret"`

	loc *time.Location
}

// MissingCredentialError reports required credentials that are empty. The
// message names the keys only, never their values.
type MissingCredentialError struct {
	Keys []string
}

func (e *MissingCredentialError) Error() string {
	return "missing required credential: " + strings.Join(e.Keys, ", ")
}

// MalformedValueError reports a setting that parsed but is not usable.
type MalformedValueError struct {
	Key    string
	Reason string
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("malformed value for %q: %s", e.Key, e.Reason)
}

// Load reads the settings file at path and returns the validated Config.
// Keys in the file that Wheatley does not know are returned in unknown for
// the caller to log; they never fail the load.
func Load(path string) (cfg *Config, unknown []string, err error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading settings file: %w", err)
	}
	return FromMap(values)
}

// FromMap builds a Config from an already-parsed key/value map. Load is the
// usual entry point; this exists so callers can source the map elsewhere
// (tests, a literal environment).
func FromMap(values map[string]string) (*Config, []string, error) {
	keyByField := envKeys()

	known := make(map[string]bool, len(keyByField))
	for _, k := range keyByField {
		known[k] = true
	}
	var unknown []string
	for k := range values {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: values}); err != nil {
		return nil, unknown, asMalformed(err, keyByField)
	}
	if err := cfg.validate(); err != nil {
		return nil, unknown, err
	}
	return cfg, unknown, nil
}

func (c *Config) validate() error {
	if c.ModelTemp < 0 || c.ModelTemp > 1 {
		return &MalformedValueError{Key: "modelTemp", Reason: fmt.Sprintf("%g is outside [0,1]", c.ModelTemp)}
	}
	if c.Notifications != 0 && c.Notifications != 1 {
		return &MalformedValueError{Key: "notifications", Reason: fmt.Sprintf("%d is not a 0/1 flag", c.Notifications)}
	}
	if c.Width <= 0 {
		return &MalformedValueError{Key: "w", Reason: "image width must be positive"}
	}
	if c.Height <= 0 {
		return &MalformedValueError{Key: "h", Reason: "image height must be positive"}
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return &MalformedValueError{Key: "time_zone", Reason: fmt.Sprintf("%q is not an IANA zone name", c.TimeZone)}
	}
	c.loc = loc

	var missing []string
	if c.DiscordBotToken == "" {
		missing = append(missing, "discordBotToken")
	}
	if c.OpenAIAPIKey == "" && c.GroqAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY or GROQ_API_KEY")
	}
	if len(missing) > 0 {
		return &MissingCredentialError{Keys: missing}
	}
	return nil
}

// asMalformed translates the env parser's aggregate error into a
// MalformedValueError naming the offending file key.
func asMalformed(err error, keyByField map[string]string) error {
	var agg env.AggregateError
	if errors.As(err, &agg) {
		for _, sub := range agg.Errors {
			var pe env.ParseError
			if errors.As(sub, &pe) {
				key := keyByField[pe.Name]
				if key == "" {
					key = pe.Name
				}
				return &MalformedValueError{Key: key, Reason: pe.Err.Error()}
			}
		}
	}
	return fmt.Errorf("parsing settings: %w", err)
}

// envKeys maps struct field names to their env tag key.
func envKeys() map[string]string {
	keys := make(map[string]string)
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup("env")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		keys[f.Name] = name
	}
	return keys
}

// TimeLocation returns the parsed time_zone.
func (c *Config) TimeLocation() *time.Location {
	return c.loc
}

// ComfyAddr returns the ComfyUI host:port, or "" when not configured.
func (c *Config) ComfyAddr() string {
	if c.ComfyIP == "" || c.ComfyPort == "" {
		return ""
	}
	return net.JoinHostPort(c.ComfyIP, c.ComfyPort)
}

// LMStudioAddr returns the LM Studio host:port, or "" when not configured.
func (c *Config) LMStudioAddr() string {
	if c.LMStudioIP == "" || c.LMStudioPort == "" {
		return ""
	}
	return net.JoinHostPort(c.LMStudioIP, c.LMStudioPort)
}
