// Package encoder runs external image encoders (gif2webp, ffmpeg) as an
// ordered chain of strategies. Each strategy is tried once; the first that
// exits cleanly wins, and the stderr of every failed attempt is classified
// so callers can report why the chain gave up.
package encoder
