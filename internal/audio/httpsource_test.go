package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvasily/squadvoice/pkg/logger"
)

func newTestStreamSource(t *testing.T, url string) *StreamSource {
	t.Helper()
	src, err := NewStreamSource(StreamSourceConfig{
		URL:        url,
		SampleRate: 16000,
		Channels:   1,
		FrameMs:    10,
	}, logger.Nop())
	require.NoError(t, err)
	src.retryDelay = time.Millisecond
	return src
}

func TestStreamSourceDeliversFrames(t *testing.T) {
	// Two frames' worth of PCM with a pause in between: the body stays open
	// across the gap and both frames come through.
	const frameBytes = 320 // 10 ms at 16 kHz mono PCM16
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write(make([]byte, frameBytes))
		flusher.Flush()
		time.Sleep(50 * time.Millisecond)
		w.Write(make([]byte, frameBytes))
		flusher.Flush()
	}))
	defer srv.Close()

	src := newTestStreamSource(t, srv.URL)
	require.NoError(t, src.Start(context.Background()))

	var frames []Frame
	for f := range src.Frames() {
		frames = append(frames, f)
	}
	src.Stop()

	require.Len(t, frames, 2)
	assert.Len(t, frames[0].Samples, 160)
	assert.Equal(t, 16000, frames[0].SampleRate)
	// The server hanging up mid-session counts as losing the device.
	assert.ErrorIs(t, src.Err(), ErrCaptureUnavailable)
}

func TestStreamSourceConnectRetriesThenFails(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := newTestStreamSource(t, srv.URL)
	err := src.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCaptureUnavailable)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestStreamSourceConnectRecoversAfterRetry(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(make([]byte, 320))
	}))
	defer srv.Close()

	src := newTestStreamSource(t, srv.URL)
	require.NoError(t, src.Start(context.Background()))

	f, ok := <-src.Frames()
	require.True(t, ok)
	assert.Len(t, f.Samples, 160)
	src.Stop()
}
