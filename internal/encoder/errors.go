package encoder

import (
	"errors"
	"os/exec"
	"regexp"
	"strings"
)

// FailureKind classifies why a strategy failed.
type FailureKind int

const (
	FailureOther       FailureKind = iota
	FailureToolMissing             // Binary not found on PATH.
	FailureBadInput                // Input unreadable or not the expected format.
	FailureNoEncoder               // Tool lacks WebP support.
	FailureCancelled               // Context cancelled or deadline hit.
)

func (k FailureKind) String() string {
	switch k {
	case FailureToolMissing:
		return "tool missing"
	case FailureBadInput:
		return "bad input"
	case FailureNoEncoder:
		return "encoder unavailable"
	case FailureCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Pre-compiled regexes for classifying encoder stderr. Checked in order by
// Classify; the first match wins.
var (
	reNoEncoder = regexp.MustCompile(
		`(?i)Unknown encoder '?libwebp'?|Encoder not found|` +
			`Requested output format 'webp' is not a suitable output format`)

	reBadInput = regexp.MustCompile(
		`(?i)Invalid data found when processing input|` +
			`not a GIF file|Error reading GIF|GIF decode|` +
			`No such file or directory|Permission denied`)
)

// MatchNoEncoder reports whether stderr says the WebP encoder is missing.
func MatchNoEncoder(stderr string) bool {
	return reNoEncoder.MatchString(stderr)
}

// MatchBadInput reports whether stderr blames the input file.
func MatchBadInput(stderr string) bool {
	return reBadInput.MatchString(stderr)
}

// Classify maps a failed ExecResult to a FailureKind.
func Classify(res ExecResult) FailureKind {
	if errors.Is(res.Err, exec.ErrNotFound) {
		return FailureToolMissing
	}
	if MatchNoEncoder(res.Stderr) {
		return FailureNoEncoder
	}
	if MatchBadInput(res.Stderr) {
		return FailureBadInput
	}
	return FailureOther
}

// StrategyError records one failed attempt.
type StrategyError struct {
	Strategy string
	Kind     FailureKind
	Stderr   string
	Err      error
}

func (e *StrategyError) Error() string {
	msg := e.Strategy + " " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if tail := lastLine(e.Stderr); tail != "" {
		msg += " (" + tail + ")"
	}
	return msg
}

func (e *StrategyError) Unwrap() error { return e.Err }

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
