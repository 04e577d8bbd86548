package framelog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuecast.ai/internal/protocol"
)

func frame(n uint64, fn string) protocol.FrameMsg {
	return protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Frame:           n,
		Action:          protocol.ActionMsg{Function: fn, Args: []protocol.ArgMsg{{Name: "screen", Value: json.RawMessage(`[1,2]`)}}},
		Intent:          json.RawMessage(`{"units":[0]}`),
	}
}

func TestRecorder_RoundTripAcrossHours(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)

	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }
	require.NoError(t, r.WriteFrame(frame(1, "Move_screen")))
	require.NoError(t, r.WriteFrame(frame(2, "Attack_screen")))
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, r.WriteFrame(frame(3, "select_army")))
	require.NoError(t, r.Close())

	files, err := Files(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "frames-2026-03-01-10.jsonl.zst", filepath.Base(files[0]))
	assert.Equal(t, "frames-2026-03-01-11.jsonl.zst", filepath.Base(files[1]))

	var got []uint64
	require.NoError(t, ReadFrames(dir, func(f protocol.FrameMsg) error {
		got = append(got, f.Frame)
		assert.JSONEq(t, `{"units":[0]}`, string(f.Intent))
		return nil
	}))
	assert.Equal(t, []uint64{1, 2, 3}, got)

	// A single file is accepted too.
	got = nil
	require.NoError(t, ReadFrames(files[1], func(f protocol.FrameMsg) error {
		got = append(got, f.Frame)
		return nil
	}))
	assert.Equal(t, []uint64{3}, got)
}

func TestRecorder_AppendsAfterReopen(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := uint64(1); i <= 2; i++ {
		r := NewRecorder(dir)
		r.now = func() time.Time { return clock }
		require.NoError(t, r.WriteFrame(frame(i, "no_op")))
		require.NoError(t, r.Close())
	}

	var n int
	require.NoError(t, ReadFrames(dir, func(protocol.FrameMsg) error { n++; return nil }))
	assert.Equal(t, 2, n)
}

func TestRecorder_ReadableBeforeClose(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)
	defer r.Close()

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, r.WriteFrame(frame(i, "Move_screen")))
	}

	var got []uint64
	require.NoError(t, ReadFrames(dir, func(f protocol.FrameMsg) error {
		got = append(got, f.Frame)
		return nil
	}))
	assert.Equal(t, []uint64{1, 2, 3}, got)
}

func TestReadFrames_TornTail(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)
	require.NoError(t, r.WriteFrame(frame(1, "no_op")))
	require.NoError(t, r.WriteFrame(frame(2, "no_op")))
	require.NoError(t, r.Close())

	files, err := Files(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	b, err := os.ReadFile(files[0])
	require.NoError(t, err)
	// Cut the second record in half.
	require.NoError(t, os.WriteFile(files[0], b[:len(b)-10], 0o644))

	var got []uint64
	require.NoError(t, ReadFrames(dir, func(f protocol.FrameMsg) error {
		got = append(got, f.Frame)
		return nil
	}))
	assert.Equal(t, []uint64{1}, got)
}

func TestReadFrames_StopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)
	require.NoError(t, r.WriteFrame(frame(1, "no_op")))
	require.NoError(t, r.WriteFrame(frame(2, "no_op")))
	require.NoError(t, r.Close())

	stop := errors.New("stop")
	var n int
	err := ReadFrames(dir, func(protocol.FrameMsg) error { n++; return stop })
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestReadFrames_PlainJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"frame\":7,\"action\":{\"function\":\"no_op\"}}\n\n{bad\n"), 0o644))

	var got []uint64
	err := ReadFrames(path, func(f protocol.FrameMsg) error {
		got = append(got, f.Frame)
		return nil
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	assert.Equal(t, []uint64{7}, got)
}

func TestFiles_Missing(t *testing.T) {
	_, err := Files(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
