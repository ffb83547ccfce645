package ffmpeg

import "testing"

func TestProgressBlockFeed(t *testing.T) {
	var block progressBlock

	lines := []string{
		"frame=240",
		"fps=31.4",
		"total_size=10485760",
		"out_time_us=10000000",
		"out_time=00:00:10.000000",
		"speed=1.25x",
	}
	for _, line := range lines {
		if _, complete := block.feed(line); complete {
			t.Fatalf("line %q must not complete a block", line)
		}
	}

	sample, complete := block.feed("progress=continue")
	if !complete {
		t.Fatal("progress= line must complete the block")
	}
	if sample.Frame != 240 {
		t.Errorf("Frame = %d, want 240", sample.Frame)
	}
	if sample.FPS != 31.4 {
		t.Errorf("FPS = %f, want 31.4", sample.FPS)
	}
	if sample.TotalSizeBytes != 10485760 {
		t.Errorf("TotalSizeBytes = %d, want 10485760", sample.TotalSizeBytes)
	}
	if sample.OutputTimeMicros != 10000000 {
		t.Errorf("OutputTimeMicros = %d, want 10000000", sample.OutputTimeMicros)
	}
	if sample.OutputSecs() != 10 {
		t.Errorf("OutputSecs = %f, want 10", sample.OutputSecs())
	}
	if sample.Speed != 1.25 {
		t.Errorf("Speed = %f, want 1.25", sample.Speed)
	}
	if sample.Done {
		t.Error("continue block must not be Done")
	}
}

func TestProgressBlockResetsBetweenBlocks(t *testing.T) {
	var block progressBlock

	block.feed("frame=100")
	block.feed("progress=continue")

	// Second block reports no frame; the stale value must not leak.
	block.feed("fps=20")
	sample, _ := block.feed("progress=end")
	if sample.Frame != 0 {
		t.Errorf("Frame = %d, want 0 after reset", sample.Frame)
	}
	if !sample.Done {
		t.Error("progress=end must mark the sample Done")
	}
}

func TestProgressBlockIgnoresMalformedValues(t *testing.T) {
	var block progressBlock

	block.feed("frame=N/A")
	block.feed("fps=")
	block.feed("not a key value line")
	sample, complete := block.feed("progress=continue")
	if !complete {
		t.Fatal("block must still complete")
	}
	if sample.Frame != 0 || sample.FPS != 0 {
		t.Errorf("malformed values must stay zero: %+v", sample)
	}
}

func TestTailBufferKeepsLastLines(t *testing.T) {
	tail := newTailBuffer(3)
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		tail.Append(line)
	}
	if got := tail.String(); got != "c\nd\ne" {
		t.Errorf("tail = %q, want last three lines", got)
	}
}
