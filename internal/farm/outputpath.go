package farm

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OutputPath computes the bit-exact output file path for one rendered
// frame, per spec.md §6:
//
//	eye == sbs                          -> <output_dir>/SBS/<clip>_<F><ext>
//	eye in {left,right} && separate     -> <output_dir>/<L|R>/<clip>_<F><ext>
//	eye in {left,right} && !separate    -> <output_dir>/<clip>_<L|R>_<F><ext>
//
// F is the zero-padded 6-digit frame index. clip is the clip path's
// basename without extension.
func OutputPath(j *Job, frameIndex int, eye Eye) string {
	clip := clipBasename(j.ClipPath)
	ext := extensionFor(j.Format)
	f := fmt.Sprintf("%06d", frameIndex)

	if eye == EyeSBS {
		return filepath.Join(j.OutputDir, "SBS", fmt.Sprintf("%s_%s%s", clip, f, ext))
	}

	letter := eyeLetter(eye)
	if j.SeparateFolders {
		return filepath.Join(j.OutputDir, letter, fmt.Sprintf("%s_%s%s", clip, f, ext))
	}
	return filepath.Join(j.OutputDir, fmt.Sprintf("%s_%s_%s%s", clip, letter, f, ext))
}

// OutputSubdir returns the subdirectory (relative to OutputDir) that
// must exist before the converter runs for the given eye: "SBS" for
// sbs, "L"/"R" for left/right when separate_folders, or "" when
// output files land directly in OutputDir.
func OutputSubdir(j *Job, eye Eye) string {
	if eye == EyeSBS {
		return "SBS"
	}
	if j.SeparateFolders {
		return eyeLetter(eye)
	}
	return ""
}

func eyeLetter(eye Eye) string {
	if eye == EyeLeft {
		return "L"
	}
	return "R"
}

func extensionFor(f Format) string {
	if f == FormatPPM {
		return ".ppm"
	}
	return ".exr"
}

func clipBasename(clipPath string) string {
	base := filepath.Base(clipPath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
