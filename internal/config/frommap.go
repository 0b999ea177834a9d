package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownKey is returned for keys outside the configuration schema.
var ErrUnknownKey = errors.New("unknown configuration key")

type setter func(c *Config, v string) error

func intField(dst func(*Config) *int) setter {
	return func(c *Config, v string) error {
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst(c) = parsed
		return nil
	}
}

func floatField(dst func(*Config) *float64) setter {
	return func(c *Config, v string) error {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return err
		}
		*dst(c) = parsed
		return nil
	}
}

func boolField(dst func(*Config) *bool) setter {
	return func(c *Config, v string) error {
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst(c) = parsed
		return nil
	}
}

func stringField(dst func(*Config) *string) setter {
	return func(c *Config, v string) error {
		*dst(c) = strings.TrimSpace(v)
		return nil
	}
}

var setters = map[string]setter{
	"random_seed": func(c *Config, v string) error {
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return err
		}
		c.Seed = parsed
		return nil
	},
	"steps":                     intField(func(c *Config) *int { return &c.Steps }),
	"workers":                   intField(func(c *Config) *int { return &c.Workers }),
	"ew_res":                    floatField(func(c *Config) *float64 { return &c.EWRes }),
	"ns_res":                    floatField(func(c *Config) *float64 { return &c.NSRes }),
	"reproductive_rate":         floatField(func(c *Config) *float64 { return &c.ReproductiveRate }),
	"use_lethal_temperature":    boolField(func(c *Config) *bool { return &c.UseLethalTemperature }),
	"lethal_temperature":        floatField(func(c *Config) *float64 { return &c.LethalTemperature }),
	"weather":                   boolField(func(c *Config) *bool { return &c.Weather }),
	"natural_kernel_type":       stringField(func(c *Config) *string { return &c.Natural.Family }),
	"natural_scale":             floatField(func(c *Config) *float64 { return &c.Natural.Scale }),
	"natural_direction":         stringField(func(c *Config) *string { return &c.Natural.Direction }),
	"natural_kappa":             floatField(func(c *Config) *float64 { return &c.Natural.Kappa }),
	"use_anthropogenic_kernel":  boolField(func(c *Config) *bool { return &c.UseAnthropogenic }),
	"percent_natural_dispersal": floatField(func(c *Config) *float64 { return &c.PercentNaturalDispersal }),
	"anthro_kernel_type":        stringField(func(c *Config) *string { return &c.Anthropogenic.Family }),
	"anthro_scale":              floatField(func(c *Config) *float64 { return &c.Anthropogenic.Scale }),
	"anthro_direction":          stringField(func(c *Config) *string { return &c.Anthropogenic.Direction }),
	"anthro_kappa":              floatField(func(c *Config) *float64 { return &c.Anthropogenic.Kappa }),
}

// Keys lists every key accepted by Apply in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromMap builds a validated config from flag-style key/value pairs on top of
// the defaults.
func FromMap(kv map[string]string) (Config, error) {
	return DefaultConfig().Apply(kv)
}

// Apply returns a copy of c with the key/value overrides applied and validated.
// Unknown keys and unparsable values are errors; c itself is never modified.
func (c Config) Apply(kv map[string]string) (Config, error) {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		set, ok := setters[k]
		if !ok {
			errs = append(errs, fmt.Errorf("%w %q", ErrUnknownKey, k))
			continue
		}
		if err := set(&c, kv[k]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
		}
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
