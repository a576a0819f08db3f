package converter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/renderfarm/framefarm/internal/farm"
)

func TestBuildArgsBaseline(t *testing.T) {
	args := BuildArgs(Options{
		ClipPath:   "/clips/a.braw",
		OutputDir:  "/out",
		StartFrame: 10,
		EndFrame:   20,
		Eye:        farm.EyeLeft,
		Format:     farm.FormatEXR,
	})
	require.Equal(t, []string{"/clips/a.braw", "/out", "10-20", "left", "--format=exr"}, args)
}

func TestBuildArgsAllFlags(t *testing.T) {
	args := BuildArgs(Options{
		ClipPath:          "/clips/a.braw",
		OutputDir:         "/out",
		StartFrame:        0,
		EndFrame:          5,
		Eye:               farm.EyeSBS,
		Format:            farm.FormatPPM,
		SeparateFolders:   true,
		UseACES:           true,
		ColorInputSpace:   "ACEScg",
		ColorOutputSpace:  "sRGB",
		UseSTMap:          true,
		STMapPath:         "/maps/lens.stmap",
	})
	require.Equal(t, []string{
		"/clips/a.braw", "/out", "0-5", "sbs", "--format=ppm",
		"--aces", "--input-cs=ACEScg", "--output-cs=sRGB",
		"--separate-folders", "--stmap=/maps/lens.stmap",
	}, args)
}

func TestBuildArgsSTMapOmittedWithoutFlag(t *testing.T) {
	args := BuildArgs(Options{
		ClipPath: "/c", OutputDir: "/o", Eye: farm.EyeLeft, Format: farm.FormatEXR,
		STMapPath: "/maps/lens.stmap",
	})
	require.NotContains(t, args, "--stmap=/maps/lens.stmap")
}

func TestTimeoutFloorsAtClaimTimeoutPlusMargin(t *testing.T) {
	got := Timeout(1, farm.EyeLeft, time.Second, time.Millisecond, 3*time.Minute)
	require.Equal(t, 3*time.Minute+15*time.Second, got)
}

func TestTimeoutScalesWithFrameCountAndDoublesForSBS(t *testing.T) {
	base := 10 * time.Second
	perFrame := 2 * time.Second
	mono := Timeout(100, farm.EyeLeft, base, perFrame, 0)
	sbs := Timeout(100, farm.EyeSBS, base, perFrame, 0)
	require.Equal(t, base+100*perFrame, mono)
	require.Equal(t, 2*(base+100*perFrame), sbs)
}

func TestParseClipInfo(t *testing.T) {
	out := []byte("FRAME_COUNT=240\nWIDTH=1920\nHEIGHT=1080\nFRAME_RATE=23.976\nSTEREO=1\n")
	info, err := parseClipInfo(out)
	require.NoError(t, err)
	require.Equal(t, &ClipInfo{FrameCount: 240, Width: 1920, Height: 1080, FrameRate: 23.976, Stereo: true}, info)
}

func TestParseClipInfoIgnoresUnknownLines(t *testing.T) {
	out := []byte("junk line\nFRAME_COUNT=10\n\n")
	info, err := parseClipInfo(out)
	require.NoError(t, err)
	require.Equal(t, 10, info.FrameCount)
	require.False(t, info.Stereo)
}
