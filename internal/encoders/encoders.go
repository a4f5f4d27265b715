// Package encoders holds the builtin table of HEVC encoder profiles recoder
// knows how to drive. A profile describes how to express quality and preset
// levels for one ffmpeg encoder backend.
package encoders

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownProfile is returned when a profile name is not in the builtin table.
var ErrUnknownProfile = errors.New("unknown encoder profile")

// Class distinguishes software from hardware encoders.
type Class string

const (
	ClassCPU Class = "CPU"
	ClassGPU Class = "GPU"
)

// QualityMode names the rate-control family a profile uses.
type QualityMode string

const (
	QualityCRF QualityMode = "crf"
	QualityVBR QualityMode = "vbr"
	QualityCQP QualityMode = "cqp"
	QualityICQ QualityMode = "icq"
)

// Profile is an immutable description of one encoder backend.
type Profile struct {
	// Name is both the profile identity and the ffmpeg codec name.
	Name        string
	DisplayName string
	Class       Class
	// SelectArgs picks a specific device for hardware backends.
	SelectArgs  []string
	QualityMode QualityMode
	RateControl []string
	// QualityFlags each receive the requested quality value.
	QualityFlags []string
	PresetFlag   string
	// PresetLabels is indexed by preset level, fastest first.
	PresetLabels []string
}

// PresetLabel returns the label for the preset level or false when out of range.
func (p Profile) PresetLabel(level int) (string, bool) {
	if level < 0 || level >= len(p.PresetLabels) {
		return "", false
	}
	return p.PresetLabels[level], true
}

var builtin = []Profile{
	{
		Name:         "libx265",
		DisplayName:  "x265 (CPU)",
		Class:        ClassCPU,
		QualityMode:  QualityCRF,
		QualityFlags: []string{"-crf"},
		PresetFlag:   "-preset",
		PresetLabels: []string{"fast", "medium", "slow"},
	},
	{
		Name:         "hevc_nvenc",
		DisplayName:  "NVIDIA NVENC HEVC",
		Class:        ClassGPU,
		SelectArgs:   []string{"-gpu", "0"},
		QualityMode:  QualityVBR,
		RateControl:  []string{"-rc:v", "vbr"},
		QualityFlags: []string{"-cq"},
		PresetFlag:   "-preset",
		PresetLabels: []string{"fast", "medium", "slow"},
	},
	{
		Name:         "hevc_amf",
		DisplayName:  "AMD AMF HEVC",
		Class:        ClassGPU,
		QualityMode:  QualityCQP,
		RateControl:  []string{"-rc", "cqp"},
		QualityFlags: []string{"-qp_i", "-qp_p"},
		PresetFlag:   "-quality",
		PresetLabels: []string{"speed", "balanced", "quality"},
	},
	{
		Name:         "hevc_qsv",
		DisplayName:  "Intel Quick Sync HEVC",
		Class:        ClassGPU,
		QualityMode:  QualityICQ,
		QualityFlags: []string{"-global_quality"},
		PresetFlag:   "-preset",
		PresetLabels: []string{"fast", "medium", "slow"},
	},
}

// All returns a copy of the builtin profiles in table order.
func All() []Profile {
	return slices.Clone(builtin)
}

// Names returns the builtin profile names in table order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for _, p := range builtin {
		names = append(names, p.Name)
	}
	return names
}

// Lookup finds a builtin profile by name (case-insensitive).
func Lookup(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range builtin {
		if p.Name == key {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
}

// Select resolves names into profiles, preserving order. An empty list selects
// every builtin profile.
func Select(names []string) ([]Profile, error) {
	if len(names) == 0 {
		return All(), nil
	}
	out := make([]Profile, 0, len(names))
	for _, name := range names {
		p, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
