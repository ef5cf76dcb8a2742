package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// parseDuration accepts Go duration syntax or a bare number of seconds.
func parseDuration(raw string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed, nil
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("invalid duration %q: use Go duration syntax or whole seconds", raw)
	}
	return time.Duration(secs) * time.Second, nil
}

// durationValue decodes into target from YAML scalars and command-line
// flags with parseDuration.
type durationValue struct {
	target *time.Duration
}

func (d *durationValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	parsed, err := parseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d.target = parsed
	return nil
}

func (d *durationValue) Set(raw string) error {
	parsed, err := parseDuration(raw)
	if err != nil {
		return err
	}
	*d.target = parsed
	return nil
}

func (d *durationValue) String() string {
	if d == nil || d.target == nil {
		return "0s"
	}
	return d.target.String()
}

func (d *durationValue) Type() string { return "duration" }

// UnmarshalYAML decodes duration keys with parseDuration and everything else
// with the default rules.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type plain Config
	if node.Kind != yaml.MappingNode {
		return node.Decode((*plain)(c))
	}

	durations := map[string]*time.Duration{
		"poll_interval":     &c.PollInterval,
		"http_timeout":      &c.HTTPTimeout,
		"shutdown_delay":    &c.ShutdownDelay,
		"journal_retention": &c.JournalRetention,
		"redis_ttl":         &c.RedisTTL,
	}
	rest := *node
	rest.Content = make([]*yaml.Node, 0, len(node.Content))
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		target, ok := durations[key.Value]
		if !ok {
			rest.Content = append(rest.Content, key, value)
			continue
		}
		if err := value.Decode(&durationValue{target: target}); err != nil {
			return fmt.Errorf("%s: %w", key.Value, err)
		}
	}
	return rest.Decode((*plain)(c))
}
