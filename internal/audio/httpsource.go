package audio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rvasily/squadvoice/pkg/logger"
)

// StreamSource captures audio from an HTTP endpoint serving raw PCM16LE
// (e.g. a loopback bridge exposing the game output or microphone). It is the
// standard capture collaborator for the pipeline; anything that can speak
// this contract can feed a channel.
type StreamSource struct {
	url        string
	channels   int
	chunker    *Chunker
	httpClient *http.Client
	logger     *logger.Logger

	frames     chan Frame
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	retryDelay time.Duration

	mu  sync.Mutex
	err error
}

// StreamSourceConfig describes one PCM stream endpoint.
type StreamSourceConfig struct {
	URL        string
	SampleRate int
	Channels   int // channel count of the wire format; output is downmixed mono
	FrameMs    int
}

// NewStreamSource creates a source for the given endpoint.
func NewStreamSource(cfg StreamSourceConfig, log *logger.Logger) (*StreamSource, error) {
	chunker, err := NewChunker(cfg.SampleRate, cfg.Channels, cfg.FrameMs)
	if err != nil {
		return nil, err
	}

	// Deadlines apply to the connect phase only. The stream body stays open
	// for the whole session, so a client-level timeout would cut it off.
	transport := &http.Transport{
		DisableCompression: true, // never recompress audio
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: 10 * time.Second,
	}

	return &StreamSource{
		url:        cfg.URL,
		channels:   cfg.Channels,
		chunker:    chunker,
		httpClient: &http.Client{Transport: transport},
		logger:     log.Named("capture"),
		frames:     make(chan Frame, 64),
		retryDelay: time.Second,
	}, nil
}

// Start implements Source.
func (s *StreamSource) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	body, err := s.connect(runCtx)
	if err != nil {
		cancel()
		close(s.frames)
		return err
	}

	s.wg.Add(1)
	go s.captureLoop(runCtx, body)
	return nil
}

// connect opens the stream with retries and exponential backoff.
func (s *StreamSource) connect(ctx context.Context) (io.ReadCloser, error) {
	const maxRetries = 3
	retryDelay := s.retryDelay

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "*/*")
		req.Header.Set("Connection", "keep-alive")

		resp, err := s.httpClient.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			s.logger.Debug("Connected to audio stream", logger.String("url", s.url))
			return resp.Body, nil
		}
		if resp != nil {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		s.logger.Warn("Retrying audio stream connection",
			logger.String("url", s.url),
			logger.Int("attempt", attempt+1),
			logger.Error(lastErr))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
			retryDelay *= 2
		}
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrCaptureUnavailable, s.url, lastErr)
}

// captureLoop reads the stream and pushes decoded frames until the stream
// ends or the context is cancelled.
func (s *StreamSource) captureLoop(ctx context.Context, body io.ReadCloser) {
	defer s.wg.Done()
	defer close(s.frames)
	defer body.Close()

	reader := bufio.NewReaderSize(body, 64*1024)
	buf := make([]byte, 8192)

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			for _, f := range s.chunker.Push(buf[:n]) {
				select {
				case s.frames <- f:
				case <-ctx.Done():
					return
				}
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Mid-session disconnect (including EOF): the device/bridge
			// went away.
			s.setErr(fmt.Errorf("%w: stream read: %v", ErrCaptureUnavailable, err))
			s.logger.Error("Audio stream lost", logger.String("url", s.url), logger.Error(err))
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// Frames implements Source.
func (s *StreamSource) Frames() <-chan Frame { return s.frames }

// Err implements Source.
func (s *StreamSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop implements Source.
func (s *StreamSource) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *StreamSource) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
