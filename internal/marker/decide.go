package marker

import "fmt"

// Action is the outcome of the idempotency check.
type Action int

const (
	Proceed Action = iota
	Skip
)

func (a Action) String() string {
	if a == Skip {
		return "skip"
	}
	return "proceed"
}

// Request carries the settings of the run asking about a file.
type Request struct {
	Reencode bool
	Quality  int
}

// Decision explains what to do with a file.
type Decision struct {
	Action Action
	Marker Marker
	Reason string
	// ReencodeBlocked is set when re-encoding was requested but the marker
	// generation cannot support it.
	ReencodeBlocked bool
}

// Decide applies the skip policy to a marker. A nil marker always proceeds.
// A structured marker proceeds only when re-encoding is requested and the
// requested quality value is greater than the recorded one.
func Decide(m Marker, req Request) Decision {
	switch mk := m.(type) {
	case Legacy:
		d := Decision{Action: Skip, Marker: mk, Reason: "already encoded (legacy title tag)"}
		if req.Reencode {
			d.ReencodeBlocked = true
			d.Reason = "re-encoding is not possible for files tagged by the legacy title marker"
		}
		return d
	case Structured:
		if req.Reencode && req.Quality > mk.Quality {
			return Decision{
				Action: Proceed,
				Marker: mk,
				Reason: fmt.Sprintf("re-encoding: requested quality %d, recorded %d", req.Quality, mk.Quality),
			}
		}
		return Decision{Action: Skip, Marker: mk, Reason: SkipMessage(mk)}
	default:
		return Decision{Action: Proceed, Reason: "no completion marker"}
	}
}

// SkipMessage is the user-facing explanation for skipping a structured marker.
func SkipMessage(s Structured) string {
	return fmt.Sprintf("already encoded with %s and a quality of %d using preset %d", s.Profile, s.Quality, s.Preset)
}
