package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// FLEXIBLE YAML SCALARS
// =============================================================================
//
// Several knobs accept more than one YAML shape for compatibility with the
// frontend module's config surface: refresh_periodically takes a bool or an
// interval in milliseconds, add_default_callback_url takes a bool or a
// literal URL string.

// BoolOrMillis decodes a YAML bool or integer. true means "enabled with
// the default interval"; an integer is an interval in milliseconds.
type BoolOrMillis struct {
	set    bool
	truthy bool
	millis int64
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *BoolOrMillis) UnmarshalYAML(node *yaml.Node) error {
	var asBool bool
	if err := node.Decode(&asBool); err == nil {
		b.set = true
		b.truthy = asBool
		b.millis = 0
		return nil
	}

	var asInt int64
	if err := node.Decode(&asInt); err == nil {
		b.set = true
		b.truthy = asInt != 0
		b.millis = asInt
		return nil
	}

	return fmt.Errorf("line %d: want bool or integer milliseconds, got %q", node.Line, node.Value)
}

// Enabled reports whether periodic refresh is turned on.
func (b BoolOrMillis) Enabled() bool {
	return b.set && b.truthy
}

// Millis returns the configured interval in milliseconds. A bare `true`
// yields the default refresh interval.
func (b BoolOrMillis) Millis() int64 {
	if !b.Enabled() {
		return 0
	}
	if b.millis == 0 {
		return DefaultRefreshIntervalMillis
	}
	return b.millis
}

// Interval returns the refresh interval as a duration, or zero if disabled.
func (b BoolOrMillis) Interval() time.Duration {
	return time.Duration(b.Millis()) * time.Millisecond
}

// BoolOrString decodes a YAML bool or string. The string form carries a
// literal value used in place of the derived default.
type BoolOrString struct {
	set     bool
	truthy  bool
	literal string
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *BoolOrString) UnmarshalYAML(node *yaml.Node) error {
	var asBool bool
	if err := node.Decode(&asBool); err == nil {
		b.set = true
		b.truthy = asBool
		b.literal = ""
		return nil
	}

	var asString string
	if err := node.Decode(&asString); err == nil {
		b.set = true
		b.truthy = asString != ""
		b.literal = asString
		return nil
	}

	return fmt.Errorf("line %d: want bool or string, got %q", node.Line, node.Value)
}

// Enabled reports whether the flag is truthy (true or non-empty string).
func (b BoolOrString) Enabled() bool {
	return b.set && b.truthy
}

// Value returns the literal string if one was configured, else fallback.
func (b BoolOrString) Value(fallback string) string {
	if b.literal != "" {
		return b.literal
	}
	return fallback
}

// True builds an enabled boolean flag. Used by tests and the CLI.
func True() BoolOrString {
	return BoolOrString{set: true, truthy: true}
}

// Literal builds a string-valued flag.
func Literal(s string) BoolOrString {
	return BoolOrString{set: true, truthy: s != "", literal: s}
}

// EveryMillis builds an interval flag. Used by tests and the CLI.
func EveryMillis(ms int64) BoolOrMillis {
	return BoolOrMillis{set: true, truthy: ms != 0, millis: ms}
}
