// Package notifications delivers batch events via ntfy.
//
// NewService publishes to the ntfy topic configured in config.toml and
// degrades to a no-op when no topic is set. Task and run completion messages
// are rendered from user templates with {{variable}} placeholders; variables
// missing from the payload render as NULL so a typo is visible rather than
// silently blank.
package notifications
