package marker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// TagKey is the metadata key of the structured marker.
	TagKey = "recoder"
	// LegacyToken marks a legacy title tag.
	LegacyToken = "[recoder]"
)

var errMalformed = errors.New("malformed marker")

// Marker is a completion marker found on a file. Implementations are Legacy
// and Structured.
type Marker interface {
	isMarker()
	String() string
}

// Legacy is the first-generation marker: a title tag with the recoder token.
// It records nothing about how the file was encoded.
type Legacy struct {
	Title string
}

func (Legacy) isMarker() {}

func (l Legacy) String() string { return "legacy title " + strconv.Quote(l.Title) }

// Structured records the profile, quality, and preset of the encode.
type Structured struct {
	Profile string
	Quality int
	Preset  int
}

func (Structured) isMarker() {}

// Value renders the tag value written into the container.
func (s Structured) Value() string {
	return s.Profile + "," + strconv.Itoa(s.Quality) + "," + strconv.Itoa(s.Preset)
}

func (s Structured) String() string { return TagKey + "=" + s.Value() }

// ParseStructured parses "profile,quality,preset".
func ParseStructured(value string) (Structured, error) {
	parts := strings.Split(strings.TrimSpace(value), ",")
	if len(parts) != 3 {
		return Structured{}, fmt.Errorf("%w: %q needs three fields", errMalformed, value)
	}
	profile := strings.TrimSpace(parts[0])
	if profile == "" {
		return Structured{}, fmt.Errorf("%w: %q has no profile", errMalformed, value)
	}
	quality, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Structured{}, fmt.Errorf("%w: quality in %q: %v", errMalformed, value, err)
	}
	preset, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return Structured{}, fmt.Errorf("%w: preset in %q: %v", errMalformed, value, err)
	}
	return Structured{Profile: profile, Quality: quality, Preset: preset}, nil
}

// Parser looks for one marker variant in a file's tags. Tag keys are already
// lower-cased. found is false when the variant is absent.
type Parser func(tags map[string]string) (m Marker, found bool, err error)

// DefaultParsers lists the marker parsers in precedence order; the newer
// structured form wins when a file carries both.
func DefaultParsers() []Parser {
	return []Parser{parseStructuredTag, parseLegacyTitle}
}

func parseStructuredTag(tags map[string]string) (Marker, bool, error) {
	value, ok := tags[TagKey]
	if !ok {
		return nil, false, nil
	}
	s, err := ParseStructured(value)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func parseLegacyTitle(tags map[string]string) (Marker, bool, error) {
	title, ok := tags["title"]
	if !ok || !strings.Contains(title, LegacyToken) {
		return nil, false, nil
	}
	return Legacy{Title: title}, true, nil
}

func normalizeKeys(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for key, value := range tags {
		out[strings.ToLower(strings.TrimSpace(key))] = value
	}
	return out
}
