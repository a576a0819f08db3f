// Package converter builds and runs the external frame-conversion
// binary's command line (spec.md §6) and parses its --info probe
// output.
package converter

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/renderfarm/framefarm/internal/farm"
)

// Options mirrors a job's converter-relevant fields plus the claimed
// range being dispatched.
type Options struct {
	ClipPath        string
	OutputDir       string
	StartFrame      int
	EndFrame        int
	Eye             farm.Eye
	Format          farm.Format
	SeparateFolders bool
	UseACES         bool
	ColorInputSpace string
	ColorOutputSpace string
	UseSTMap        bool
	STMapPath       string
}

// BuildArgs composes the converter argument list per spec.md §6:
// <clip_path> <output_dir> <start>-<end> <eye> [flags].
func BuildArgs(o Options) []string {
	args := []string{
		o.ClipPath,
		o.OutputDir,
		fmt.Sprintf("%d-%d", o.StartFrame, o.EndFrame),
		string(o.Eye),
		"--format=" + string(o.Format),
	}
	if o.UseACES {
		args = append(args, "--aces")
	}
	if o.ColorInputSpace != "" {
		args = append(args, "--input-cs="+o.ColorInputSpace)
	}
	if o.ColorOutputSpace != "" {
		args = append(args, "--output-cs="+o.ColorOutputSpace)
	}
	if o.SeparateFolders {
		args = append(args, "--separate-folders")
	}
	if o.UseSTMap && o.STMapPath != "" {
		args = append(args, "--stmap="+o.STMapPath)
	}
	return args
}

// Runner spawns the converter binary.
type Runner struct {
	BinaryPath string
}

// NewRunner builds a Runner for the converter at binaryPath.
func NewRunner(binaryPath string) *Runner {
	return &Runner{BinaryPath: binaryPath}
}

// Run executes the converter for o, enforcing ctx's deadline. Returns
// nil on exit 0, otherwise a *farm.ConverterError that wraps
// farm.ErrConverterTimedOut or farm.ErrConverterFailed and carries the
// combined output; callers are responsible for
// the additional first-output-file check spec.md §4.3 requires before
// treating a range as successful.
func (r *Runner) Run(ctx context.Context, o Options) error {
	cmd := exec.CommandContext(ctx, r.BinaryPath, BuildArgs(o)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		sentinel := farm.ErrConverterFailed
		if ctx.Err() == context.DeadlineExceeded {
			sentinel = farm.ErrConverterTimedOut
		}
		rng := farm.ClaimedRange{StartFrame: o.StartFrame, EndFrame: o.EndFrame, Eye: o.Eye}
		return farm.NewConverterError(rng, cmd.String(), fmt.Errorf("%w: %s", sentinel, strings.TrimSpace(string(out))))
	}
	return nil
}

// Timeout computes a per-range deadline per spec.md §4.3:
// base + per_frame*frame_count, doubled for sbs (twice the per-frame
// work), floored at claimTimeout plus a small margin so a range never
// times out before its claim would anyway expire.
func Timeout(frameCount int, eye farm.Eye, base, perFrame, claimTimeout time.Duration) time.Duration {
	d := base + time.Duration(frameCount)*perFrame
	if eye == farm.EyeSBS {
		d *= 2
	}
	floor := claimTimeout + 15*time.Second
	if d < floor {
		return floor
	}
	return d
}

// ClipInfo is the parsed result of a --info probe.
type ClipInfo struct {
	FrameCount int
	Width      int
	Height     int
	FrameRate  float64
	Stereo     bool
}

// Probe invokes "<binary> --info <clipPath>" and parses its
// KEY=VALUE output lines into a ClipInfo.
func (r *Runner) Probe(ctx context.Context, clipPath string) (*ClipInfo, error) {
	cmd := exec.CommandContext(ctx, r.BinaryPath, "--info", clipPath)
	out, err := cmd.Output()
	if err != nil {
		return nil, farm.NewConverterError(farm.ClaimedRange{}, cmd.String(), fmt.Errorf("%w: %w", farm.ErrConverterFailed, err))
	}
	return parseClipInfo(out)
}

func parseClipInfo(out []byte) (*ClipInfo, error) {
	info := &ClipInfo{}
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "FRAME_COUNT":
			info.FrameCount, _ = strconv.Atoi(value)
		case "WIDTH":
			info.Width, _ = strconv.Atoi(value)
		case "HEIGHT":
			info.Height, _ = strconv.Atoi(value)
		case "FRAME_RATE":
			info.FrameRate, _ = strconv.ParseFloat(value, 64)
		case "STEREO":
			info.Stereo = value == "1" || strings.EqualFold(value, "true")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse clip info: %w", err)
	}
	return info, nil
}
