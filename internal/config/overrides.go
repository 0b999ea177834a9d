package config

import (
	"fmt"
	"strings"
)

// Overrides collects repeatable key=value flags for Apply.
type Overrides []string

func (o *Overrides) String() string {
	return strings.Join(*o, ",")
}

// Set implements flag.Value.
func (o *Overrides) Set(value string) error {
	if !strings.Contains(value, "=") {
		return fmt.Errorf("override %q is not key=value", value)
	}
	*o = append(*o, value)
	return nil
}

// Map splits the overrides; later entries win.
func (o Overrides) Map() map[string]string {
	kv := make(map[string]string, len(o))
	for _, item := range o {
		key, value, _ := strings.Cut(item, "=")
		kv[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return kv
}
