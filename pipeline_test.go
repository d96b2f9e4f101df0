package kolea

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lanikai/kolea/internal/bitio"
	"github.com/lanikai/kolea/internal/h264"
)

// The NALU builders below mirror internal/au/assembler_test.go's, since
// that package's helpers are unexported and this test exercises the same
// scenario (this design scenario 1) through the public API instead.

func naluBytes(nalRefIdc byte, t h264.NALUType, rbsp []byte) []byte {
	out := make([]byte, 0, 5+len(rbsp))
	out = append(out, h264.StartCode[:]...)
	out = append(out, h264.NALUHeader{NalRefIdc: nalRefIdc, Type: t}.Byte())
	out = append(out, rbsp...)
	return out
}

func buildSPS(t *testing.T) []byte {
	buf := make([]byte, 64)
	w := bitio.NewWriter(buf, true)
	require.NoError(t, w.WriteBits(8, 66))
	require.NoError(t, w.WriteBits(8, 0))
	require.NoError(t, w.WriteBits(8, 30))
	require.NoError(t, w.WriteUE(0))
	require.NoError(t, w.WriteUE(0))
	require.NoError(t, w.WriteUE(0))
	require.NoError(t, w.WriteUE(0))
	require.NoError(t, w.WriteUE(4))
	require.NoError(t, w.WriteFlag(false))
	require.NoError(t, w.WriteUE(10))
	require.NoError(t, w.WriteUE(8))
	require.NoError(t, w.WriteFlag(true))
	require.NoError(t, w.ByteAlign())
	return naluBytes(3, h264.NALUTypeSPS, w.Bytes())
}

func buildPPS(t *testing.T) []byte {
	buf := make([]byte, 32)
	w := bitio.NewWriter(buf, true)
	require.NoError(t, w.WriteUE(0))
	require.NoError(t, w.WriteUE(0))
	require.NoError(t, w.WriteFlag(false))
	require.NoError(t, w.WriteFlag(false))
	require.NoError(t, w.WriteUE(0))
	require.NoError(t, w.WriteUE(0))
	require.NoError(t, w.WriteUE(0))
	require.NoError(t, w.WriteFlag(false))
	require.NoError(t, w.WriteBits(2, 0))
	require.NoError(t, w.WriteSE(0))
	require.NoError(t, w.WriteSE(0))
	require.NoError(t, w.WriteSE(0))
	require.NoError(t, w.WriteFlag(false))
	require.NoError(t, w.WriteFlag(false))
	require.NoError(t, w.WriteFlag(false))
	require.NoError(t, w.ByteAlign())
	return naluBytes(3, h264.NALUTypePPS, w.Bytes())
}

func buildIDRSlice(t *testing.T, firstMb uint32) []byte {
	buf := make([]byte, 32)
	w := bitio.NewWriter(buf, true)
	require.NoError(t, w.WriteUE(firstMb))
	require.NoError(t, w.WriteUE(7)) // slice_type = 7 -> I (mod 5 = 2)
	require.NoError(t, w.WriteUE(0))
	require.NoError(t, w.WriteBits(4, 0))
	require.NoError(t, w.WriteUE(0)) // idr_pic_id
	require.NoError(t, w.WriteBits(4, 0))
	require.NoError(t, w.WriteSE(0))
	require.NoError(t, w.ByteAlign())
	return naluBytes(3, h264.NALUTypeSliceIDR, w.Bytes())
}

// fakeConsumer collects every AU delivered to it behind a mutex, since
// AUReady runs on the pipeline's output goroutine.
type fakeConsumer struct {
	mu  sync.Mutex
	aus []*OutputAU
}

func (f *fakeConsumer) consumer() Consumer {
	return Consumer{
		GetAUBuffer: func() ([]byte, interface{}, error) {
			return make([]byte, 256*1024), nil, nil
		},
		AUReady: func(out *OutputAU) ConsumerResult {
			f.mu.Lock()
			defer f.mu.Unlock()
			cp := *out
			cp.Buf = append([]byte(nil), out.Buf...)
			f.aus = append(f.aus, &cp)
			return ConsumerOK
		},
	}
}

func (f *fakeConsumer) wait(t *testing.T, n int) []*OutputAU {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		got := len(f.aus)
		f.mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(time.Millisecond)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	require.GreaterOrEqual(t, len(f.aus), n)
	return append([]*OutputAU(nil), f.aus...)
}

// TestPipelineBasicSync implements this design scenario 1: SPS, PPS, and a
// single IDR slice sharing one timestamp should produce exactly one AU with
// sync_type IDR, preceded by an SPS/PPS-ready callback.
func TestPipelineBasicSync(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WaitForSync = true
	p, err := New(cfg)
	require.NoError(t, err)

	var spsPpsFired bool
	p.SPSPPSReady = func(sps, pps []byte) { spsPpsFired = true }

	fc := &fakeConsumer{}
	require.NoError(t, p.AddConsumer("primary", fc.consumer()))
	require.NoError(t, p.Start())
	defer p.Stop()

	sps := buildSPS(t)
	pps := buildPPS(t)
	idr := buildIDRSlice(t, 0)

	ts := Timestamps{Ts: 1000}
	require.NoError(t, p.SubmitNALU(CauseNALUComplete, sps, ts, true, false, 0))
	require.NoError(t, p.SubmitNALU(CauseNALUComplete, pps, ts, false, false, 0))
	require.NoError(t, p.SubmitNALU(CauseNALUComplete, idr, ts, false, true, 0))

	aus := fc.wait(t, 1)
	require.True(t, spsPpsFired)
	require.Equal(t, SyncIDR, aus[0].SyncType)
	require.Equal(t, uint64(1000), aus[0].Timestamp)
	require.Equal(t, len(sps)+len(pps)+len(idr), len(aus[0].Buf))
}

// TestPipelineFilterOutSPSPPS checks the FilterOutSPSPPS option drops both
// parameter sets from the emitted AU, leaving only the IDR slice's bytes
// (design scenario 1 with filtering enabled).
func TestPipelineFilterOutSPSPPS(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WaitForSync = true
	cfg.FilterOutSPSPPS = true
	p, err := New(cfg)
	require.NoError(t, err)

	fc := &fakeConsumer{}
	require.NoError(t, p.AddConsumer("primary", fc.consumer()))
	require.NoError(t, p.Start())
	defer p.Stop()

	sps := buildSPS(t)
	pps := buildPPS(t)
	idr := buildIDRSlice(t, 0)

	ts := Timestamps{Ts: 2000}
	require.NoError(t, p.SubmitNALU(CauseNALUComplete, sps, ts, true, false, 0))
	require.NoError(t, p.SubmitNALU(CauseNALUComplete, pps, ts, false, false, 0))
	require.NoError(t, p.SubmitNALU(CauseNALUComplete, idr, ts, false, true, 0))

	aus := fc.wait(t, 1)
	require.Equal(t, len(idr), len(aus[0].Buf))
}

// TestPipelineWaitForSyncDropsBeforeSync checks that, with WaitForSync set,
// an AU closed before SPS+PPS are both observed never reaches a consumer.
func TestPipelineWaitForSyncDropsBeforeSync(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WaitForSync = true
	// Incomplete AUs are let through so that the wait-for-sync gate, not the
	// incomplete-AU rule, is what keeps the unparseable IDR from a consumer.
	cfg.OutputIncompleteAU = true
	p, err := New(cfg)
	require.NoError(t, err)

	fc := &fakeConsumer{}
	require.NoError(t, p.AddConsumer("primary", fc.consumer()))
	require.NoError(t, p.Start())
	defer p.Stop()

	idr := buildIDRSlice(t, 0)
	ts := Timestamps{Ts: 3000}
	require.NoError(t, p.SubmitNALU(CauseNALUComplete, idr, ts, true, true, 0))

	time.Sleep(20 * time.Millisecond)
	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.Empty(t, fc.aus)
}

// TestPipelineMultiConsumerFanOut registers two consumers and checks both
// independently receive the same AU (this package's fan-out path).
func TestPipelineMultiConsumerFanOut(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WaitForSync = false
	p, err := New(cfg)
	require.NoError(t, err)

	fcA := &fakeConsumer{}
	fcB := &fakeConsumer{}
	require.NoError(t, p.AddConsumer("a", fcA.consumer()))
	require.NoError(t, p.AddConsumer("b", fcB.consumer()))
	require.NoError(t, p.Start())
	defer p.Stop()

	sps := buildSPS(t)
	pps := buildPPS(t)
	idr := buildIDRSlice(t, 0)
	ts := Timestamps{Ts: 4000}
	require.NoError(t, p.SubmitNALU(CauseNALUComplete, sps, ts, true, false, 0))
	require.NoError(t, p.SubmitNALU(CauseNALUComplete, pps, ts, false, false, 0))
	require.NoError(t, p.SubmitNALU(CauseNALUComplete, idr, ts, false, true, 0))

	ausA := fcA.wait(t, 1)
	ausB := fcB.wait(t, 1)
	require.Equal(t, ausA[0].Buf, ausB[0].Buf)
}
