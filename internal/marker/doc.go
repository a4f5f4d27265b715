// Package marker decides whether a file was already encoded by recoder.
//
// Completed encodes carry a container metadata tag. Two generations exist:
// the legacy form is a title tag containing "[recoder]", the structured form
// is a dedicated "recoder" tag holding "profile,quality,preset". Each form has
// its own parser; Detector runs them in order over the tags ffprobe reports
// and Decide applies the skip or re-encode policy to whatever was found.
//
// Detection fails open: an unreadable file or a malformed tag means the file
// is encoded again rather than silently skipped.
package marker
