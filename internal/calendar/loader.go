package calendar

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

//go:embed default_calendar.yaml
var defaultCalendarYAML []byte

// DefaultSource names the embedded table
const DefaultSource = "embedded"

type file struct {
	Events []Event `yaml:"events"`
}

// Default returns the embedded illustrative table
func Default() *Calendar {
	cal, err := Parse(DefaultSource, defaultCalendarYAML)
	if err != nil {
		// the embedded file is covered by tests
		panic(fmt.Sprintf("calendar: embedded table is invalid: %v", err))
	}
	return cal
}

// LoadFile reads a YAML event table from disk
func LoadFile(path string) (*Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar file: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes and validates a YAML event table.
// KnownFields(true): 오타/미사용 필드 즉시 실패
func Parse(source string, data []byte) (*Calendar, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode calendar %s: %w", source, err)
	}

	if len(f.Events) == 0 {
		return nil, fmt.Errorf("calendar %s has no events", source)
	}

	// report every broken event, not just the first
	var errs error
	for i := range f.Events {
		ev := f.Events[i]
		if err := ev.prepare(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("event %d (%s): %w", i, ev.Name, err))
		}
	}
	if errs != nil {
		return nil, fmt.Errorf("calendar %s: %w", source, errs)
	}

	return New(source, f.Events)
}
