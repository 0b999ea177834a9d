package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// requiredKeys must be present in a configuration file; everything else falls
// back to DefaultConfig.
var requiredKeys = []string{"steps", "ew_res", "ns_res", "reproductive_rate"}

// Load reads a TOML configuration file. Keys outside the schema are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text into a validated Config.
func Parse(text string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%w: parse: %w", ErrInvalid, err)
	}
	if err := CheckMetaData(md); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// CheckMetaData rejects undecoded keys and missing required keys. prefix
// locates the config table when it is embedded in a larger document.
func CheckMetaData(md toml.MetaData, prefix ...string) error {
	var problems []string
	for _, key := range md.Undecoded() {
		problems = append(problems, fmt.Sprintf("%v %q", ErrUnknownKey, key.String()))
	}
	for _, key := range requiredKeys {
		path := append(append([]string(nil), prefix...), key)
		if !md.IsDefined(path...) {
			problems = append(problems, fmt.Sprintf("missing required key %q", strings.Join(path, ".")))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}
