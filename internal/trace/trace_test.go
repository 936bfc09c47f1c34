package trace

import (
	"bytes"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTouch(t *testing.T, rec *Recorder, id uint32) *resource.Object {
	t.Helper()
	client := resource.NewClient(rec)
	obj, err := client.CreateObject(id, protocols.Touch, 7, nil)
	require.NoError(t, err)
	return obj
}

func TestRecorderKeepsOrderPerObject(t *testing.T) {
	rec := NewRecorder()
	touch := newTouch(t, rec, 3)
	other, err := touch.Client().CreateObject(4, protocols.Touch, 7, nil)
	require.NoError(t, err)

	touch.Send(protocols.TouchEventMotion, uint32(10), int32(1), wire.NewFixed(2.5), wire.NewFixed(-1))
	other.Send(protocols.TouchEventCancel)
	touch.Send(protocols.TouchEventFrame)

	assert.Equal(t, []string{"motion(10, 1, 2.5, -1)", "frame()"}, rec.Calls(touch))
	assert.Equal(t, []string{"cancel()"}, rec.Calls(other))

	all := rec.Records()
	require.Len(t, all, 3)
	assert.Equal(t, "wl_touch@4.cancel()", all[1].String())

	rec.Reset()
	assert.Empty(t, rec.Records())
}

func TestTraceStreamRoundTrip(t *testing.T) {
	rec := NewRecorder()
	var stream bytes.Buffer
	rec.Tee(&stream)

	touch := newTouch(t, rec, 3)
	touch.Send(protocols.TouchEventDown, uint32(1), uint32(0), touch, int32(0), wire.NewFixed(5), wire.NewFixed(2))
	touch.Send(protocols.TouchEventFrame)
	touch.Client().PostError(resource.NewProtocolError(touch, 1, "boom"))

	decoded, err := ReadAll(&stream)
	require.NoError(t, err)

	want := rec.Records()
	require.Len(t, decoded, len(want))
	for i := range want {
		assert.Equal(t, want[i].Object, decoded[i].Object)
		assert.Equal(t, want[i].String(), decoded[i].String())
	}
	assert.Equal(t, `wl_display@1.error(3, 1, "boom")`, decoded[2].String())
}

func TestReadRecordErrors(t *testing.T) {
	t.Run("truncated body", func(t *testing.T) {
		_, err := ReadRecord(bytes.NewReader([]byte{0, 0, 0, 9, 1}))
		assert.Error(t, err)
	})

	t.Run("oversized frame", func(t *testing.T) {
		_, err := ReadRecord(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}))
		assert.Error(t, err)
	})

	t.Run("garbage payload", func(t *testing.T) {
		_, err := Unmarshal([]byte{0xff})
		assert.Error(t, err)
	})
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

type failingWriter struct{ calls int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("disk full")
}

func TestBatchWriter(t *testing.T) {
	t.Run("flushes every interval", func(t *testing.T) {
		var out lockedBuffer
		bw := NewBatchWriter(&out, 10*time.Millisecond, 1024)
		defer bw.Close()

		_, err := bw.Write([]byte("abcd"))
		require.NoError(t, err)
		assert.Eventually(t, func() bool { return out.Len() == 4 }, time.Second, 5*time.Millisecond)
	})

	t.Run("flushes when the batch is full", func(t *testing.T) {
		var out lockedBuffer
		bw := NewBatchWriter(&out, time.Hour, 4)
		defer bw.Close()

		_, err := bw.Write([]byte("abc"))
		require.NoError(t, err)
		_, err = bw.Write([]byte("de"))
		require.NoError(t, err)
		assert.Equal(t, 3, out.Len())

		batches, written := bw.Stats()
		assert.Equal(t, 1, batches)
		assert.Equal(t, int64(3), written)
	})

	t.Run("oversized frame is written through", func(t *testing.T) {
		var out lockedBuffer
		bw := NewBatchWriter(&out, time.Hour, 4)
		defer bw.Close()

		_, err := bw.Write([]byte("ab"))
		require.NoError(t, err)
		n, err := bw.Write([]byte("0123456789"))
		require.NoError(t, err)
		assert.Equal(t, 10, n)
		assert.Equal(t, 12, out.Len())
	})

	t.Run("close flushes and is idempotent", func(t *testing.T) {
		var out lockedBuffer
		bw := NewBatchWriter(&out, time.Hour, 1024)

		_, err := bw.Write([]byte("xyz"))
		require.NoError(t, err)
		require.NoError(t, bw.Close())
		require.NoError(t, bw.Close())
		assert.Equal(t, 3, out.Len())

		_, err = bw.Write([]byte("late"))
		assert.ErrorIs(t, err, errWriterClosed)
	})

	t.Run("write error is sticky", func(t *testing.T) {
		var out failingWriter
		bw := NewBatchWriter(&out, time.Hour, 2)

		_, err := bw.Write([]byte("ab"))
		require.NoError(t, err)
		_, err = bw.Write([]byte("cd"))
		require.Error(t, err)
		_, err = bw.Write([]byte("e"))
		require.Error(t, err)
		assert.Error(t, bw.Close())
		assert.Equal(t, 1, out.calls)
	})
}

func TestTraceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.trace")
	f, err := CreateFile(path, time.Hour, 4096)
	require.NoError(t, err)

	rec := NewRecorder()
	rec.Tee(f)
	touch := newTouch(t, rec, 8)
	touch.Send(protocols.TouchEventCancel)
	require.NoError(t, f.Close())

	records, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "wl_touch@8.cancel()", records[0].String())
}
