// Package media cuts interview recordings into analyzer-sized clips with
// ffmpeg and probes them with ffprobe.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/leobarcove/true-claim-insight/pkg/logging"
)

// MinClipSeconds is the shortest window worth analyzing.
const MinClipSeconds = 0.1

// ErrClipTooShort is returned for windows under MinClipSeconds.
var ErrClipTooShort = errors.New("clip shorter than minimum window")

// Runner executes a tool and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Clip is one extracted window. Audio is nil when the recording has no
// audio track or ffmpeg produced none.
type Clip struct {
	Start   float64
	End     float64
	Video   []byte
	Audio   []byte
	NoAudio bool
}

// Extractor wraps the ffmpeg and ffprobe binaries.
type Extractor struct {
	FFmpeg  string
	FFprobe string
	TempDir string

	run Runner
	log *slog.Logger
}

// NewExtractor returns an Extractor writing scratch files under tempDir.
// Binaries are resolved from PATH unless FFMPEG_PATH or FFPROBE_PATH is set.
func NewExtractor(tempDir string) *Extractor {
	return &Extractor{
		FFmpeg:  envOr("FFMPEG_PATH", "ffmpeg"),
		FFprobe: envOr("FFPROBE_PATH", "ffprobe"),
		TempDir: tempDir,
		run:     execRunner,
		log:     logging.New("media"),
	}
}

// WithRunner swaps the process runner. Used by tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.run = r
	return e
}

// Duration returns the container duration in seconds.
func (e *Extractor) Duration(ctx context.Context, input string) (float64, error) {
	out, err := e.run(ctx, e.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		input,
	)
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("probe duration: unreadable %q: %w", strings.TrimSpace(string(out)), err)
	}
	return d, nil
}

// HasAudio reports whether input carries an audio stream. Probe failures
// count as no audio.
func (e *Extractor) HasAudio(ctx context.Context, input string) bool {
	out, err := e.run(ctx, e.FFprobe,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index",
		"-of", "csv=p=0",
		input,
	)
	if err != nil {
		return false
	}
	return len(bytes.TrimSpace(out)) > 0
}

// Extract cuts [start, end) out of input as a 480px, 15fps H.264 MP4 and,
// when the recording has sound, a mono 44.1kHz PCM WAV. Remote inputs are
// read with reconnects enabled. Scratch files are always removed.
func (e *Extractor) Extract(ctx context.Context, input string, start, end float64) (*Clip, error) {
	start = math.Max(0, round2(start))
	end = round2(end)
	length := round2(end - start)
	if length < MinClipSeconds {
		return nil, fmt.Errorf("%w: %.2fs", ErrClipTooShort, length)
	}

	if err := os.MkdirAll(e.TempDir, 0o750); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	id := uuid.NewString()
	videoPath := filepath.Join(e.TempDir, "seg-v-"+id+".mp4")
	audioPath := filepath.Join(e.TempDir, "seg-a-"+id+".wav")
	defer func() {
		_ = os.Remove(videoPath)
		_ = os.Remove(audioPath)
	}()

	hasAudio := e.HasAudio(ctx, input)
	for _, args := range cutCommands(input, start, length, hasAudio, videoPath, audioPath) {
		if _, err := e.run(ctx, e.FFmpeg, args...); err != nil {
			return nil, fmt.Errorf("ffmpeg cut %.2f-%.2f: %w", start, end, err)
		}
	}

	clip := &Clip{Start: start, End: end, NoAudio: !hasAudio}
	video, err := os.ReadFile(videoPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg finished but video segment was not created: %w", err)
	}
	clip.Video = video

	if hasAudio {
		audio, err := os.ReadFile(audioPath)
		if err != nil {
			e.log.Warn("audio segment missing despite audio track", "input", redact(input), "start", start)
			clip.NoAudio = true
		} else {
			clip.Audio = audio
		}
	}
	return clip, nil
}

func cutCommands(input string, start, length float64, hasAudio bool, videoPath, audioPath string) [][]string {
	ss := formatSeconds(start)
	t := formatSeconds(length)
	videoOut := []string{
		"-map", "0:v:0?",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-vf", "scale=480:-2,fps=15",
		"-crf", "28",
		"-movflags", "+faststart",
	}
	audioOut := []string{
		"-map", "0:a:0?",
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "44100",
		"-ac", "1",
	}

	if isRemote(input) {
		in := []string{
			"-y",
			"-reconnect", "1",
			"-reconnect_at_eof", "1",
			"-reconnect_delay_max", "2",
			"-timeout", "10000000",
			"-ss", ss, "-i", input, "-t", t,
		}
		cmds := [][]string{concat(in, videoOut, []string{"-an", videoPath})}
		if hasAudio {
			cmds = append(cmds, concat(in, audioOut, []string{audioPath}))
		}
		return cmds
	}

	// one pass, two outputs
	args := concat([]string{"-y", "-ss", ss, "-i", input, "-t", t}, videoOut, []string{videoPath})
	if hasAudio {
		args = concat(args, audioOut, []string{audioPath})
	}
	return [][]string{args}
}

func isRemote(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// redact drops the query string so signed URLs do not reach the logs.
func redact(input string) string {
	if i := strings.IndexByte(input, '?'); i >= 0 && isRemote(input) {
		return input[:i]
	}
	return input
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func formatSeconds(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 400 {
			msg = msg[len(msg)-400:]
		}
		return out, fmt.Errorf("%s: %w: %s", filepath.Base(name), err, msg)
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
