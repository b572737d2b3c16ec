package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// Prober reports the duration of an audio payload.
type Prober interface {
	Duration(ctx context.Context, data []byte) (float64, error)
}

// FFProbeProber probes audio metadata by shelling out to ffprobe.
type FFProbeProber struct {
	ffprobePath string
}

// NewFFProbeProber creates a prober using the given ffprobe binary.
func NewFFProbeProber(ffprobePath string) *FFProbeProber {
	return &FFProbeProber{ffprobePath: ffprobePath}
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration writes the payload to a temp file and asks ffprobe for the
// container duration in seconds. Unparsable audio yields an error.
func (p *FFProbeProber) Duration(ctx context.Context, data []byte) (float64, error) {
	tmp, err := os.CreateTemp("", "meetscribe-probe-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file for probing: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write audio to temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		tmp.Name(),
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed: %w\nFFprobe Error: %s", err, stderr.String())
	}

	duration, err := ParseDuration(out.Bytes())
	if err != nil {
		return 0, err
	}
	return duration, nil
}

// ParseDuration extracts the duration in seconds from ffprobe JSON output.
func ParseDuration(probeJSON []byte) (float64, error) {
	var probeData ffprobeOutput
	if err := json.Unmarshal(probeJSON, &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}

	if probeData.Format.Duration == "" {
		return 0, fmt.Errorf("duration not found in ffprobe output")
	}

	duration, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string %q: %w", probeData.Format.Duration, err)
	}
	return duration, nil
}
