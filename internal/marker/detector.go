package marker

import (
	"context"
	"log/slog"

	"recoder/internal/logging"
	"recoder/internal/media/ffprobe"
)

// Inspector reads container-level metadata tags.
type Inspector interface {
	Tags(ctx context.Context, path string) (map[string]string, error)
}

// FFprobeInspector reads tags with ffprobe.
type FFprobeInspector struct {
	Binary string
}

// Tags implements Inspector.
func (i FFprobeInspector) Tags(ctx context.Context, path string) (map[string]string, error) {
	return ffprobe.InspectTags(ctx, i.Binary, path)
}

// Detector finds markers on files and decides whether to encode them.
type Detector struct {
	inspector Inspector
	parsers   []Parser
	logger    *slog.Logger
}

// NewDetector builds a Detector with the default parser order.
func NewDetector(inspector Inspector, logger *slog.Logger) *Detector {
	return &Detector{
		inspector: inspector,
		parsers:   DefaultParsers(),
		logger:    logging.NewComponentLogger(logger, "marker"),
	}
}

// Find returns the first marker any parser recognizes, or nil.
func (d *Detector) Find(ctx context.Context, path string) (Marker, error) {
	tags, err := d.inspector.Tags(ctx, path)
	if err != nil {
		return nil, err
	}
	tags = normalizeKeys(tags)
	for _, parse := range d.parsers {
		m, found, err := parse(tags)
		if err != nil {
			logging.WarnWithContext(d.logger, "ignoring malformed completion marker", "marker_malformed",
				logging.String(logging.FieldFile, path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file will be encoded again"),
				logging.String(logging.FieldErrorHint, "remove the recoder tag if this repeats"))
			continue
		}
		if found {
			return m, nil
		}
	}
	return nil, nil
}

// Check inspects path and applies Decide. Inspection failures proceed.
func (d *Detector) Check(ctx context.Context, path string, req Request) Decision {
	logger := logging.WithContext(ctx, d.logger).With(logging.String(logging.FieldFile, path))
	m, err := d.Find(ctx, path)
	if err != nil {
		logging.WarnWithContext(logger, "metadata inspection failed", "marker_inspect_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "file will be encoded without an idempotency check"),
			logging.String(logging.FieldErrorHint, "verify ffprobe can read the file"))
		return Decision{Action: Proceed, Reason: "metadata inspection failed"}
	}

	decision := Decide(m, req)
	switch {
	case decision.ReencodeBlocked:
		logging.WarnWithContext(logger, decision.Reason, "reencode_blocked",
			logging.String("marker", m.String()),
			logging.String(logging.FieldImpact, "file skipped"),
			logging.String(logging.FieldErrorHint, "strip the legacy title tag to force a new encode"))
	case decision.Action == Skip:
		logger.Info(decision.Reason, logging.String(logging.FieldEventType, "encode_skipped"))
	case m != nil:
		logger.Info(decision.Reason, logging.String(logging.FieldEventType, "reencode_requested"))
	default:
		logger.Debug(decision.Reason)
	}
	return decision
}
