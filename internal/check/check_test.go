package check

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/backmassage/spacesaver/internal/config"
	"github.com/backmassage/spacesaver/internal/transcode"
)

type mockLog struct {
	lines []string
}

func (m *mockLog) add(level, format string, args ...interface{}) {
	m.lines = append(m.lines, level+" "+fmt.Sprintf(format, args...))
}
func (m *mockLog) Info(f string, a ...interface{})    { m.add("INFO", f, a...) }
func (m *mockLog) Success(f string, a ...interface{}) { m.add("SUCCESS", f, a...) }
func (m *mockLog) Warn(f string, a ...interface{})    { m.add("WARN", f, a...) }
func (m *mockLog) Error(f string, a ...interface{})   { m.add("ERROR", f, a...) }
func (m *mockLog) Debug(bool, string, ...interface{}) {}

func (m *mockLog) has(prefix string) bool {
	for _, l := range m.lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

// fakeTools makes only the named tools resolvable and gives ffmpeg a
// libwebp encoder when withLibWebP is set.
func fakeTools(t *testing.T, tools []string, withLibWebP bool) {
	t.Helper()
	origLook, origOut := lookPath, output
	t.Cleanup(func() { lookPath, output = origLook, origOut })

	present := map[string]bool{}
	for _, n := range tools {
		present[n] = true
	}
	lookPath = func(name string) (string, error) {
		if present[name] {
			return "/usr/bin/" + name, nil
		}
		return "", exec.ErrNotFound
	}
	output = func(name string, args ...string) ([]byte, error) {
		if !present[name] {
			return nil, exec.ErrNotFound
		}
		if len(args) > 0 && args[len(args)-1] == "-encoders" {
			if withLibWebP {
				return []byte(" V....D libwebp  libwebp WebP image\n"), nil
			}
			return []byte(" V....D libx264\n"), nil
		}
		return []byte(name + " version 1.2.3\nmore"), nil
	}
}

func compressCfg() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Command = config.CommandCompress
	return &cfg
}

func TestCheckDeps(t *testing.T) {
	tests := []struct {
		name    string
		tools   []string
		libwebp bool
		want    error
	}{
		{"gif2webp only", []string{"gif2webp"}, false, nil},
		{"ffmpeg with libwebp", []string{"ffmpeg"}, true, nil},
		{"ffmpeg without libwebp", []string{"ffmpeg"}, false, ErrNoEncoder},
		{"nothing", nil, false, ErrNoEncoder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeTools(t, tt.tools, tt.libwebp)
			err := CheckDeps(compressCfg())
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.want), "got %v", err)
			}
		})
	}
}

func TestCheckDeps_NamesMissingTools(t *testing.T) {
	fakeTools(t, nil, false)
	err := CheckDeps(compressCfg())
	assert.ErrorIs(t, err, ErrGif2webpNotFound)
	assert.ErrorIs(t, err, ErrFfmpegNotFound)
}

func TestCheckDeps_OtherCommandsNeedNothing(t *testing.T) {
	fakeTools(t, nil, false)
	cfg := config.DefaultConfig()
	cfg.Command = config.CommandDedup
	assert.NoError(t, CheckDeps(&cfg))
}

func TestRunCheck(t *testing.T) {
	fakeTools(t, []string{"ffmpeg"}, true)
	cfg := config.DefaultConfig()
	cfg.CachePath = filepath.Join(t.TempDir(), "hashes.db")

	reg := transcode.NewRegistry()
	reg.MustRegister(&namedTranscoder{name: "Fake"})

	log := &mockLog{}
	ok := RunCheck(&cfg, log, reg)

	assert.True(t, ok)
	assert.True(t, log.has("INFO Transcoders: 1 registered"))
	assert.True(t, log.has("INFO   Fake v0.1.0 (gif)"))
	assert.True(t, log.has("WARN gif2webp not found"))
	assert.True(t, log.has("SUCCESS ffmpeg: ffmpeg version 1.2.3"))
	assert.True(t, log.has("SUCCESS ffmpeg libwebp encoder available"))
	assert.True(t, log.has("SUCCESS Built-in WebP encoder works"))
	assert.True(t, log.has("SUCCESS Hash cache"))
}

func TestRunCheck_NoAnimatedEncoder(t *testing.T) {
	fakeTools(t, []string{"ffmpeg"}, false)
	cfg := config.DefaultConfig()
	cfg.NoCache = true

	log := &mockLog{}
	assert.False(t, RunCheck(&cfg, log, nil))
	assert.True(t, log.has("WARN ffmpeg has no libwebp encoder"))
	assert.True(t, log.has("INFO Hash cache: in-memory only"))
}

type namedTranscoder struct{ name string }

func (n *namedTranscoder) Metadata() transcode.Metadata {
	return transcode.Metadata{Name: n.name, Description: "test", Version: "0.1.0"}
}
func (n *namedTranscoder) SupportedExtensions() []string { return []string{"gif"} }
func (n *namedTranscoder) CanHandle(string) transcode.Verdict {
	return transcode.Reject("never")
}
func (n *namedTranscoder) EstimateRatio(string) *float64 { return nil }
func (n *namedTranscoder) Process(context.Context, string, string) (*transcode.Result, error) {
	return nil, errors.New("unused")
}
