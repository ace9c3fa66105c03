package chunk

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/config"
)

func testStreamingConfig() config.StreamingConfig {
	return config.StreamingConfig{
		MaxChunkSize:       1024,
		TotalSizeLimit:     1 << 20,
		FlowControlEnabled: false,
		MaxChunksPerSecond: 100,
		FlowControlWindow:  time.Second,
		MaxPendingChunks:   64,
		FlushThreshold:     4096,
		FlushInterval:      100 * time.Millisecond,
	}
}

func seqPtr(n int64) *int64 { return &n }

// collect concatenates all emitted payloads plus a final forced flush.
func collect(t *testing.T, s *State, results []Result, now time.Time) []byte {
	t.Helper()
	var out bytes.Buffer
	for _, res := range results {
		if res.Kind != Emitted {
			t.Fatalf("unexpected result kind %s (err: %v)", res.Kind, res.Err)
		}
		for _, p := range res.Emitted {
			out.Write(p)
		}
	}
	out.Write(s.Flush(now))
	return out.Bytes()
}

func TestProcess_OrderedArrival(t *testing.T) {
	now := time.Now()
	s := NewState(testStreamingConfig(), now)

	var results []Result
	for i, data := range []string{"A", "B", "C"} {
		results = append(results, s.Process([]byte(data), seqPtr(int64(i)), now))
	}

	got := collect(t, s, results, now)
	if string(got) != "ABC" {
		t.Errorf("emitted %q, want %q", got, "ABC")
	}
	if s.NextSequence() != 3 {
		t.Errorf("next sequence = %d, want 3", s.NextSequence())
	}
}

func TestProcess_OutOfOrderArrival(t *testing.T) {
	now := time.Now()
	s := NewState(testStreamingConfig(), now)

	// Arrival order 0, 2, 1 must still emit in sequence order.
	var results []Result
	results = append(results, s.Process([]byte("A"), seqPtr(0), now))
	results = append(results, s.Process([]byte("C"), seqPtr(2), now))
	if s.PendingCount() != 1 {
		t.Fatalf("pending count = %d, want 1", s.PendingCount())
	}
	results = append(results, s.Process([]byte("B"), seqPtr(1), now))

	got := collect(t, s, results, now)
	if string(got) != "ABC" {
		t.Errorf("emitted %q, want %q", got, "ABC")
	}
	if s.PendingCount() != 0 {
		t.Errorf("pending count = %d after drain, want 0", s.PendingCount())
	}
}

func TestProcess_ShuffledSequence(t *testing.T) {
	now := time.Now()
	s := NewState(testStreamingConfig(), now)

	chunks := []string{"the ", "quick ", "brown ", "fox ", "jumps ", "over ", "the ", "lazy ", "dog"}
	order := rand.New(rand.NewSource(42)).Perm(len(chunks))

	var results []Result
	for _, i := range order {
		results = append(results, s.Process([]byte(chunks[i]), seqPtr(int64(i)), now))
	}

	want := "the quick brown fox jumps over the lazy dog"
	got := collect(t, s, results, now)
	if string(got) != want {
		t.Errorf("emitted %q, want %q", got, want)
	}
}

func TestProcess_UnorderedMode(t *testing.T) {
	now := time.Now()
	s := NewState(testStreamingConfig(), now)

	for _, data := range []string{"Hel", "lo"} {
		res := s.Process([]byte(data), nil, now)
		if res.Kind != Emitted {
			t.Fatalf("result kind = %s, want emitted", res.Kind)
		}
	}
	if got := s.Flush(now); string(got) != "Hello" {
		t.Errorf("flushed %q, want %q", got, "Hello")
	}
	if s.ChunkCount() != 2 || s.TotalSize() != 5 {
		t.Errorf("counters = (%d chunks, %d bytes), want (2, 5)", s.ChunkCount(), s.TotalSize())
	}
}

func TestProcess_Validation(t *testing.T) {
	cfg := testStreamingConfig()
	cfg.MaxChunkSize = 8
	cfg.TotalSizeLimit = 12

	tests := []struct {
		name    string
		chunks  [][]byte
		wantErr any
	}{
		{
			name:    "chunk too large",
			chunks:  [][]byte{[]byte("123456789")},
			wantErr: &SizeError{},
		},
		{
			name:    "total size exceeded",
			chunks:  [][]byte{[]byte("12345678"), []byte("12345")},
			wantErr: &TotalSizeError{},
		},
		{
			name:    "invalid utf8",
			chunks:  [][]byte{{0x48, 0xff, 0xfe}},
			wantErr: &EncodingError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Now()
			s := NewState(cfg, now)

			var last Result
			for _, c := range tt.chunks {
				last = s.Process(c, nil, now)
			}
			if last.Kind != Rejected {
				t.Fatalf("result kind = %s, want rejected", last.Kind)
			}
			switch tt.wantErr.(type) {
			case *SizeError:
				var e *SizeError
				if !errors.As(last.Err, &e) {
					t.Errorf("error = %v, want SizeError", last.Err)
				}
			case *TotalSizeError:
				var e *TotalSizeError
				if !errors.As(last.Err, &e) {
					t.Errorf("error = %v, want TotalSizeError", last.Err)
				}
			case *EncodingError:
				var e *EncodingError
				if !errors.As(last.Err, &e) {
					t.Errorf("error = %v, want EncodingError", last.Err)
				}
			}
		})
	}
}

func TestProcess_RejectionLeavesTotalsUnchanged(t *testing.T) {
	cfg := testStreamingConfig()
	cfg.TotalSizeLimit = 10
	now := time.Now()
	s := NewState(cfg, now)

	s.Process([]byte("12345678"), nil, now)
	before := s.TotalSize()

	res := s.Process([]byte("12345"), nil, now)
	if res.Kind != Rejected {
		t.Fatalf("result kind = %s, want rejected", res.Kind)
	}
	if s.TotalSize() != before {
		t.Errorf("total size changed from %d to %d on rejection", before, s.TotalSize())
	}
	if s.ChunkCount() != 1 {
		t.Errorf("chunk count = %d, want 1", s.ChunkCount())
	}
}

func TestProcess_FlowControl(t *testing.T) {
	cfg := testStreamingConfig()
	cfg.FlowControlEnabled = true
	cfg.MaxChunksPerSecond = 5
	cfg.FlowControlWindow = time.Second

	base := time.Now()
	s := NewState(cfg, base)

	// Fill the window.
	for i := 0; i < 5; i++ {
		res := s.Process([]byte("x"), nil, base.Add(time.Duration(i)*time.Millisecond))
		if res.Kind != Emitted {
			t.Fatalf("chunk %d: result kind = %s, want emitted", i, res.Kind)
		}
	}

	// The next chunk within the window must be delayed, not errored.
	now := base.Add(10 * time.Millisecond)
	res := s.Process([]byte("x"), nil, now)
	if res.Kind != Delayed {
		t.Fatalf("result kind = %s, want delayed", res.Kind)
	}
	if res.Delay <= 0 || res.Delay > cfg.FlowControlWindow {
		t.Errorf("delay = %s, want in (0, %s]", res.Delay, cfg.FlowControlWindow)
	}
	if !s.BackpressureActive() {
		t.Error("backpressure not marked active after delay")
	}

	// After the window slides past the oldest arrival, the chunk is
	// accepted and backpressure clears.
	res = s.Process([]byte("x"), nil, base.Add(1100*time.Millisecond))
	if res.Kind != Emitted {
		t.Fatalf("result kind after window = %s, want emitted", res.Kind)
	}
	if s.BackpressureActive() {
		t.Error("backpressure still active after acceptance")
	}
}

func TestProcess_FlowControlRateLimitError(t *testing.T) {
	cfg := testStreamingConfig()
	cfg.FlowControlEnabled = true
	cfg.MaxChunksPerSecond = 1
	cfg.FlowControlWindow = time.Second

	base := time.Now()
	s := NewState(cfg, base)

	if res := s.Process([]byte("x"), nil, base); res.Kind != Emitted {
		t.Fatalf("first chunk: result kind = %s, want emitted", res.Kind)
	}

	// Exactly at the window boundary the computed delay is zero, which
	// must surface as a hard rate-limit error rather than Delay(0).
	res := s.Process([]byte("x"), nil, base.Add(time.Second))
	if res.Kind != Rejected {
		t.Fatalf("result kind = %s, want rejected", res.Kind)
	}
	var rle *RateLimitError
	if !errors.As(res.Err, &rle) {
		t.Errorf("error = %v, want RateLimitError", res.Err)
	}
}

func TestProcess_DuplicateSequenceDropped(t *testing.T) {
	now := time.Now()
	s := NewState(testStreamingConfig(), now)

	s.Process([]byte("A"), seqPtr(0), now)
	res := s.Process([]byte("A"), seqPtr(0), now)
	if !res.Dropped {
		t.Fatal("duplicate sequence number not dropped")
	}
	if s.ChunkCount() != 1 {
		t.Errorf("chunk count = %d, want 1", s.ChunkCount())
	}
}

func TestProcess_ReorderBufferOverflow(t *testing.T) {
	cfg := testStreamingConfig()
	cfg.MaxPendingChunks = 2
	now := time.Now()
	s := NewState(cfg, now)

	// Sequence 0 never arrives; 1 and 2 fill the reorder buffer.
	s.Process([]byte("B"), seqPtr(1), now)
	s.Process([]byte("C"), seqPtr(2), now)

	res := s.Process([]byte("D"), seqPtr(3), now)
	if !res.Dropped {
		t.Fatal("overflow chunk not dropped")
	}
	if res.DropReason != "reorder buffer full" {
		t.Errorf("drop reason = %q", res.DropReason)
	}
	if s.PendingCount() != 2 {
		t.Errorf("pending count = %d, want 2", s.PendingCount())
	}

	// The gap is not fatal for the session: once 0 arrives, the
	// buffered survivors drain in order.
	s.Process([]byte("A"), seqPtr(0), now)
	if got := s.Flush(now); string(got) != "ABC" {
		t.Errorf("flushed %q, want %q", got, "ABC")
	}
}

func TestFlush_SizeThreshold(t *testing.T) {
	cfg := testStreamingConfig()
	cfg.FlushThreshold = 4
	now := time.Now()
	s := NewState(cfg, now)

	res := s.Process([]byte("ab"), nil, now)
	if len(res.Emitted) != 0 {
		t.Fatalf("premature flush of %d payloads", len(res.Emitted))
	}
	res = s.Process([]byte("cd"), nil, now)
	if len(res.Emitted) != 1 || string(res.Emitted[0]) != "abcd" {
		t.Fatalf("emitted %v, want [abcd]", res.Emitted)
	}
	if s.BufferedBytes() != 0 {
		t.Errorf("buffered bytes = %d after flush, want 0", s.BufferedBytes())
	}
}

func TestFlush_TimeThreshold(t *testing.T) {
	cfg := testStreamingConfig()
	cfg.FlushInterval = 50 * time.Millisecond
	base := time.Now()
	s := NewState(cfg, base)

	s.Process([]byte("hi"), nil, base)
	if s.ShouldFlush(base) {
		t.Fatal("flush due immediately after first chunk")
	}

	later := base.Add(60 * time.Millisecond)
	if !s.ShouldFlush(later) {
		t.Fatal("flush not due after interval elapsed")
	}

	res := s.Process([]byte("!"), nil, later)
	if len(res.Emitted) != 1 || string(res.Emitted[0]) != "hi!" {
		t.Fatalf("emitted %v, want [hi!]", res.Emitted)
	}
}

func TestFlush_ForcedAndIdempotent(t *testing.T) {
	now := time.Now()
	s := NewState(testStreamingConfig(), now)

	s.Process([]byte("tail"), nil, now)
	if got := s.Flush(now); string(got) != "tail" {
		t.Fatalf("forced flush = %q, want %q", got, "tail")
	}
	if got := s.Flush(now); got != nil {
		t.Errorf("second flush = %q, want nil", got)
	}
	if s.ShouldFlush(now.Add(time.Hour)) {
		t.Error("ShouldFlush true with empty buffer")
	}
}

func TestRelease(t *testing.T) {
	now := time.Now()
	s := NewState(testStreamingConfig(), now)

	s.Process([]byte("A"), seqPtr(5), now)
	s.Process([]byte("B"), nil, now)
	s.Release()

	if s.PendingCount() != 0 || s.BufferedBytes() != 0 {
		t.Errorf("release left pending=%d buffered=%d", s.PendingCount(), s.BufferedBytes())
	}
}
