package ffmpeg

import (
	"bufio"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	rqerr "github.com/jdhalbert/requant/internal/errors"
	"github.com/jdhalbert/requant/internal/logging"
	"github.com/jdhalbert/requant/internal/util"
)

// ProgressSample is one structured snapshot from the encoder's progress
// feed. Fields that ffmpeg did not report in a block are zero.
type ProgressSample struct {
	OutputTimeMicros int64   // encoded output position in microseconds
	Frame            int64   // frames produced so far
	FPS              float64 // instantaneous encode rate
	Speed            float64 // realtime speed multiplier (1.0 = realtime)
	TotalSizeBytes   int64   // bytes written so far
	Done             bool    // final block of the feed
}

// OutputSecs returns the encoded position in seconds.
func (s ProgressSample) OutputSecs() float64 {
	return float64(s.OutputTimeMicros) / 1e6
}

// stderrTailLines bounds the diagnostic tail kept for pass errors.
const stderrTailLines = 20

// responsiveNiceness is the process priority applied when responsive
// encoding is enabled, keeping the machine usable during long encodes.
const responsiveNiceness = 10

// Executor runs encoder passes as ffmpeg subprocesses.
type Executor struct {
	logger *logging.Logger

	// Responsive lowers subprocess scheduling priority.
	Responsive bool
}

// NewExecutor creates an executor. A nil logger disables logging.
func NewExecutor(logger *logging.Logger, responsive bool) *Executor {
	return &Executor{logger: logger, Responsive: responsive}
}

// RunPass executes one encoder pass and streams progress samples onto
// samples until the subprocess exits. The channel is closed before
// RunPass returns. Pass failure is reported as a pass error carrying the
// exit code and the tail of the encoder's diagnostic output.
func (e *Executor) RunPass(ctx context.Context, pass Pass, args []string, samples chan<- ProgressSample) error {
	defer close(samples)

	e.logger.Debug("ffmpeg pass %d (%s): ffmpeg %s", pass.Index, pass.Purpose, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return rqerr.NewCommandError("ffmpeg", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return rqerr.NewCommandError("ffmpeg", err)
	}

	if err := cmd.Start(); err != nil {
		return rqerr.NewCommandError("ffmpeg", err)
	}

	if e.Responsive {
		if err := unix.Setpriority(unix.PRIO_PROCESS, cmd.Process.Pid, responsiveNiceness); err != nil {
			e.logger.Warn("could not lower encoder priority: %v", err)
		}
	}

	tail := newTailBuffer(stderrTailLines)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			tail.Append(scanner.Text())
		}
	}()

	// The progress feed arrives as key=value lines terminated by a
	// "progress=" line per block.
	var block progressBlock
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		sample, complete := block.feed(scanner.Text())
		if complete {
			samples <- sample
		}
	}

	waitErr := cmd.Wait()
	wg.Wait()

	if waitErr != nil {
		if ctx.Err() != nil {
			return rqerr.NewCancelledError()
		}
		e.logger.Error("ffmpeg pass %d failed: %v", pass.Index, waitErr)
		return rqerr.WrapExecError(pass.Index, waitErr, tail.String())
	}
	return nil
}

// progressBlock accumulates one key=value block of the progress feed.
type progressBlock struct {
	sample ProgressSample
}

// feed consumes one feed line. It returns the finished sample when the
// line terminates a block.
func (b *progressBlock) feed(line string) (ProgressSample, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return ProgressSample{}, false
	}

	switch key {
	case "out_time_us", "out_time_ms":
		// out_time_ms is microseconds despite its name; both keys carry
		// the same value in current ffmpeg.
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			b.sample.OutputTimeMicros = v
		}
	case "out_time":
		// HH:MM:SS.micro form, only needed when the numeric keys are absent.
		if b.sample.OutputTimeMicros == 0 {
			if secs, ok := util.ParseFFmpegTime(value); ok {
				b.sample.OutputTimeMicros = int64(secs * 1e6)
			}
		}
	case "frame":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			b.sample.Frame = v
		}
	case "fps":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			b.sample.FPS = v
		}
	case "speed":
		if v, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil {
			b.sample.Speed = v
		}
	case "total_size":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			b.sample.TotalSizeBytes = v
		}
	case "progress":
		sample := b.sample
		sample.Done = value == "end"
		b.sample = ProgressSample{}
		return sample, true
	}
	return ProgressSample{}, false
}

// tailBuffer keeps the last n appended lines.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	limit int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Append(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
