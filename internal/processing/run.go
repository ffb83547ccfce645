package processing

import (
	"context"
	"sync"
	"time"

	"github.com/jdhalbert/requant/internal/ffmpeg"
	"github.com/jdhalbert/requant/internal/ffprobe"
	"github.com/jdhalbert/requant/internal/logging"
	"github.com/jdhalbert/requant/internal/progress"
	"github.com/jdhalbert/requant/internal/reporter"
)

// passRunner abstracts pass execution for testability.
type passRunner interface {
	RunPass(ctx context.Context, pass ffmpeg.Pass, args []string, samples chan<- ffmpeg.ProgressSample) error
}

// runPlan drives all passes of a plan to completion. Each pass runs with
// a concurrent monitor translating the progress feed into reporter
// snapshots. A failed pass aborts the remaining plan immediately; stats
// artifacts are removed either way.
func runPlan(
	ctx context.Context,
	runner passRunner,
	plan *PassPlan,
	params ffmpeg.EncodeParams,
	probe *ffprobe.MediaProbe,
	score float64,
	rep reporter.Reporter,
	logger *logging.Logger,
) error {
	defer plan.Cleanup()

	interval := progress.Interval(probe.Width, plan.Mode, score)
	totalFrames := probe.FrameEstimate()

	for _, pass := range plan.Passes {
		if err := plan.Begin(pass.Index); err != nil {
			return err
		}

		logger.Info("starting pass %d/%d (%s, preset %s)",
			pass.Index, len(plan.Passes), pass.Purpose, pass.Preset)
		rep.PassStarted(reporter.PassInfo{
			Index:       pass.Index,
			Total:       len(plan.Passes),
			Purpose:     pass.Purpose.String(),
			TotalFrames: totalFrames,
		})

		samples := make(chan ffmpeg.ProgressSample, 16)
		monitor := &progress.Monitor{
			DurationSecs: probe.DurationSecs,
			TotalFrames:  int64(totalFrames),
			Interval:     interval,
		}

		passIndex := pass.Index
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			monitor.Run(ctx, samples, func(est progress.Estimate) {
				rep.PassProgress(reporter.ProgressSnapshot{
					PassIndex:     passIndex,
					TotalFrames:   totalFrames,
					CurrentFrame:  uint64(est.Fraction * float64(totalFrames)),
					Percent:       float32(est.Fraction * 100),
					Speed:         float32(est.Speed),
					FPS:           float32(est.FPS),
					ETA:           secsToDuration(est.ETASecs),
					ETAValid:      est.ETAValid,
					ProjectedSize: uint64(est.EstimatedFinalSizeBytes),
					Stalled:       est.Stalled,
				})
			})
		}()

		err := runner.RunPass(ctx, pass, ffmpeg.BuildPassArgs(params, pass), samples)
		wg.Wait()

		if err != nil {
			plan.Fail()
			logger.Error("pass %d failed, aborting remaining plan", pass.Index)
			return err
		}
		if err := plan.Complete(pass.Index); err != nil {
			return err
		}
	}

	return nil
}

func secsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
