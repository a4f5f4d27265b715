package history

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec         Record
		encoder     sql.NullString
		quality     sql.NullInt64
		preset      sql.NullInt64
		outcome     string
		exitCode    sql.NullInt64
		errorMsg    sql.NullString
		startedRaw  string
		finishedRaw string
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.RunID,
		&rec.TaskID,
		&rec.Path,
		&encoder,
		&quality,
		&preset,
		&outcome,
		&rec.OriginalBytes,
		&rec.NewBytes,
		&exitCode,
		&errorMsg,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Record{}, err
	}
	rec.Encoder = encoder.String
	rec.Quality = intPtr(quality)
	rec.Preset = intPtr(preset)
	rec.Outcome = Outcome(outcome)
	rec.ExitCode = intPtr(exitCode)
	rec.ErrorMessage = errorMsg.String
	if t, err := parseTimeString(startedRaw); err == nil {
		rec.StartedAt = t
	}
	if t, err := parseTimeString(finishedRaw); err == nil {
		rec.FinishedAt = t
	}
	return rec, nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
