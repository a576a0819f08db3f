package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/renderfarm/framefarm/internal/converter"
	"github.com/renderfarm/framefarm/internal/farm"
)

// jobView mirrors the wire shape of GET /api/jobs (internal/api's
// jobView) — duplicated here rather than imported since farmctl talks
// to the Control API over HTTP only, never linking internal/api.
type jobView struct {
	*farm.Job
	ComputedStatus farm.JobStatus `json:"computed_status"`
	Completed      int            `json:"completed_count"`
	Total          int            `json:"total_count"`
}

func newJobsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Submit and manage render jobs",
	}
	cmd.AddCommand(
		newJobSubmitCmd(a),
		newJobListCmd(a),
		newJobExcludeCmd(a),
		newJobActivateCmd(a),
		newJobPauseCmd(a),
		newJobPriorityCmd(a),
		newJobMoveCmd(a),
		newJobResetCmd(a),
		newJobDeleteCmd(a),
		newJobProgressCmd(a),
	)
	return cmd
}

func newJobSubmitCmd(a *App) *cobra.Command {
	var (
		id, pool, clip, outDir, format, colorIn, colorOut, stmap string
		start, end, priority                                    int
		eyes                                                    []string
		separateFolders, useACES, useSTMap                      bool
		probe                                                   bool
		converterPath                                           string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new render job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if probe && !cmd.Flags().Changed("end") {
				info, err := converter.NewRunner(converterPath).Probe(cmd.Context(), clip)
				if err != nil {
					return fmt.Errorf("probe clip: %w", err)
				}
				end = info.FrameCount - 1
				fmt.Fprintf(cmd.OutOrStdout(), "probed %s: %d frames, defaulting --end to %d\n", clip, info.FrameCount, end)
			}
			eyeVals := make([]farm.Eye, 0, len(eyes))
			for _, e := range eyes {
				eyeVals = append(eyeVals, farm.Eye(e))
			}
			job := farm.Job{
				ID: id, PoolID: pool, ClipPath: clip, OutputDir: outDir,
				StartFrame: start, EndFrame: end, Eyes: eyeVals, Format: farm.Format(format),
				SeparateFolders: separateFolders, UseACES: useACES,
				ColorInputSpace: colorIn, ColorOutputSpace: colorOut,
				UseSTMap: useSTMap, STMapPath: stmap, Priority: priority,
			}
			var resp struct {
				JobID string `json:"job_id"`
			}
			if err := a.client().post(cmd.Context(), "/api/jobs", job, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.JobID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "job identifier (required)")
	cmd.Flags().StringVar(&pool, "pool", farm.DefaultPoolID, "owning pool")
	cmd.Flags().StringVar(&clip, "clip", "", "input clip path (required)")
	cmd.Flags().StringVar(&outDir, "output", "", "output directory (required)")
	cmd.Flags().IntVar(&start, "start", 0, "start frame")
	cmd.Flags().IntVar(&end, "end", 0, "end frame")
	cmd.Flags().StringSliceVar(&eyes, "eye", []string{string(farm.EyeLeft)}, "eyes to render (repeatable)")
	cmd.Flags().StringVar(&format, "format", string(farm.FormatEXR), "output format (exr|ppm)")
	cmd.Flags().BoolVar(&separateFolders, "separate-folders", false, "write each eye to its own subfolder")
	cmd.Flags().BoolVar(&useACES, "aces", false, "enable ACES color pipeline")
	cmd.Flags().StringVar(&colorIn, "input-cs", "", "input color space")
	cmd.Flags().StringVar(&colorOut, "output-cs", "", "output color space")
	cmd.Flags().BoolVar(&useSTMap, "stmap", false, "apply a lens look-up map")
	cmd.Flags().StringVar(&stmap, "stmap-path", "", "look-up map path")
	cmd.Flags().IntVar(&priority, "priority", 50, "priority 0-100")
	cmd.Flags().BoolVar(&probe, "probe", false, "probe the clip with the converter's --info mode to default --end")
	cmd.Flags().StringVar(&converterPath, "converter-path", "frameconv", "converter binary used by --probe")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("clip")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newJobListCmd(a *App) *cobra.Command {
	var pool string
	var includeExcluded bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs with computed status and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/jobs?"
			if pool != "" {
				path += "pool=" + pool + "&"
			}
			if includeExcluded {
				path += "include_excluded=true"
			}
			var views []jobView
			if err := a.client().get(cmd.Context(), path, &views); err != nil {
				return err
			}
			printJobTable(cmd.OutOrStdout(), views, a.useColor())
			return nil
		},
	}
	cmd.Flags().StringVar(&pool, "pool", "", "filter by pool")
	cmd.Flags().BoolVar(&includeExcluded, "include-excluded", false, "include excluded/paused jobs")
	return cmd
}

func newJobExcludeCmd(a *App) *cobra.Command {
	return jobActionCmd(a, "exclude", "Exclude a job from scheduling", "/exclude")
}

func newJobPauseCmd(a *App) *cobra.Command {
	return jobActionCmd(a, "pause", "Pause a job", "/pause")
}

func newJobActivateCmd(a *App) *cobra.Command {
	return jobActionCmd(a, "activate", "Reactivate an excluded or paused job", "/activate")
}

func newJobResetCmd(a *App) *cobra.Command {
	return jobActionCmd(a, "reset", "Reset a job's progress back to pending", "/reset")
}

func jobActionCmd(a *App, use, short, suffix string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <job-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client().post(cmd.Context(), "/api/jobs/"+args[0]+suffix, nil, nil)
		},
	}
}

func newJobPriorityCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "priority <job-id> <0-100>",
		Short: "Set a job's priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid priority %q: %w", args[1], err)
			}
			return a.client().post(cmd.Context(), "/api/jobs/"+args[0]+"/priority", map[string]int{"priority": p}, nil)
		},
	}
}

func newJobMoveCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <job-id> <pool-id>",
		Short: "Move a job to a different pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client().post(cmd.Context(), "/api/jobs/"+args[0]+"/move", map[string]string{"pool_id": args[1]}, nil)
		},
	}
}

func newJobDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a job and its frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client().delete(cmd.Context(), "/api/jobs/"+args[0])
		},
	}
}

func newJobProgressCmd(a *App) *cobra.Command {
	var byEye bool
	cmd := &cobra.Command{
		Use:   "progress <job-id>",
		Short: "Show a job's frame-completion progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if byEye {
				var progress farm.EyeProgress
				if err := a.client().get(cmd.Context(), "/api/jobs/"+args[0]+"/eye-progress", &progress); err != nil {
					return err
				}
				printEyeProgress(cmd.OutOrStdout(), progress)
				return nil
			}
			var progress farm.JobProgress
			if err := a.client().get(cmd.Context(), "/api/jobs/"+args[0]+"/progress", &progress); err != nil {
				return err
			}
			printProgress(cmd.OutOrStdout(), progress, a.useColor())
			return nil
		},
	}
	cmd.Flags().BoolVar(&byEye, "by-eye", false, "break progress down by eye")
	return cmd
}
