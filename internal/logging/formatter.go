package logging

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/backmassage/spacesaver/internal/term"
)

const (
	timestampFormat = "2006-01-02 15:04:05"

	// LabelKey overrides the level text shown for an entry (e.g. SUCCESS).
	LabelKey = "label"
)

var _ logrus.Formatter = new(Formatter)

// Formatter renders "2006-01-02 15:04:05 [LEVEL] message key=value".
type Formatter struct {
	// Color wraps the level tag in the term package's ANSI codes.
	Color bool
}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	buf := entry.Buffer
	if buf == nil {
		buf = new(bytes.Buffer)
	}

	label := levelText(entry)
	tag := "[" + label + "]"
	if f.Color {
		if c := levelColor(label); c != "" {
			tag = c + tag + term.NC
		}
	}
	fmt.Fprintf(buf, "%s %s %s", entry.Time.Format(timestampFormat), tag, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != LabelKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, " %s=%v", k, entry.Data[k])
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func levelText(entry *logrus.Entry) string {
	if v, ok := entry.Data[LabelKey].(string); ok && v != "" {
		return v
	}
	if entry.Level == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(entry.Level.String())
}

func levelColor(label string) string {
	switch label {
	case "INFO":
		return term.Blue
	case "SUCCESS":
		return term.Green
	case "WARN":
		return term.Yellow
	case "ERROR":
		return term.Red
	case "DEBUG":
		return term.Cyan
	default:
		return term.Magenta
	}
}
