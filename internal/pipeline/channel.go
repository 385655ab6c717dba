package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rvasily/squadvoice/internal/audio"
	"github.com/rvasily/squadvoice/internal/changelog"
	"github.com/rvasily/squadvoice/internal/config"
	"github.com/rvasily/squadvoice/internal/glossary"
	"github.com/rvasily/squadvoice/internal/storage/sqlite"
	"github.com/rvasily/squadvoice/internal/transcription"
	"github.com/rvasily/squadvoice/internal/translation"
	"github.com/rvasily/squadvoice/internal/translit"
	"github.com/rvasily/squadvoice/pkg/logger"
)

// ChannelDeps bundles everything a channel needs. Glossary, ChangeLog and
// Store may be nil; the channel skips the corresponding step.
type ChannelDeps struct {
	Source      audio.Source
	Segmenter   *audio.Segmenter
	Transcriber transcription.Service
	Translator  translation.Service
	Glossary    *glossary.Engine
	Display     Display
	ChangeLog   *changelog.Logger
	Store       *sqlite.UtteranceStorage
	Logger      *logger.Logger
}

// Channel runs one direction of the translation pipeline: capture →
// segment → transcribe → translate → correct → display. Channels are fully
// independent; a failure in one never touches the other.
type Channel struct {
	cfg  config.ChannelConfig
	deps ChannelDeps
	log  *logger.Logger

	pending chan *audio.Utterance
	state   atomic.Int32
	dropped atomic.Int64

	err  error
	errM sync.Mutex

	now func() time.Time
}

// NewChannel creates a channel worker. queueSize bounds the number of
// utterances waiting for transcription; when the queue is full the oldest
// pending utterance is dropped so translations stay near real time.
func NewChannel(cfg config.ChannelConfig, queueSize int, deps ChannelDeps) *Channel {
	return &Channel{
		cfg:     cfg,
		deps:    deps,
		log:     deps.Logger.Named("pipeline").With(logger.String("channel", cfg.ID)),
		pending: make(chan *audio.Utterance, queueSize),
		now:     time.Now,
	}
}

// ID returns the channel identifier.
func (c *Channel) ID() string { return c.cfg.ID }

// State returns the stage the channel is currently in.
func (c *Channel) State() State { return State(c.state.Load()) }

// Dropped returns how many pending utterances were discarded under
// backpressure.
func (c *Channel) Dropped() int64 { return c.dropped.Load() }

// Err returns the terminal error after Run returns, nil on clean shutdown.
func (c *Channel) Err() error {
	c.errM.Lock()
	defer c.errM.Unlock()
	return c.err
}

func (c *Channel) setErr(err error) {
	c.errM.Lock()
	defer c.errM.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// Run captures and processes until the context is cancelled or the source
// dies. It blocks; the coordinator calls it in a goroutine per channel.
func (c *Channel) Run(ctx context.Context) error {
	if err := c.deps.Source.Start(ctx); err != nil {
		err = fmt.Errorf("channel %s: %w", c.cfg.ID, err)
		c.setErr(err)
		return err
	}
	defer c.deps.Source.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.segmentLoop(ctx)
	}()

	c.processLoop(ctx)
	wg.Wait()

	c.state.Store(int32(StateIdle))
	return c.Err()
}

// segmentLoop feeds captured frames through the segmenter and queues
// finished utterances for processing.
func (c *Channel) segmentLoop(ctx context.Context) {
	defer close(c.pending)

	for frame := range c.deps.Source.Frames() {
		if c.State() == StateIdle {
			c.state.CompareAndSwap(int32(StateIdle), int32(StateBuffering))
		}
		if u := c.deps.Segmenter.Push(frame); u != nil {
			c.enqueue(u)
		}
	}

	// Source closed. Flush whatever speech is still buffered, then decide
	// whether this was a shutdown or a dead capture device.
	if u := c.deps.Segmenter.Flush(); u != nil && ctx.Err() == nil {
		c.enqueue(u)
	}
	if err := c.deps.Source.Err(); err != nil && ctx.Err() == nil {
		c.setErr(fmt.Errorf("channel %s: %w", c.cfg.ID, err))
		c.log.Error("capture source failed, channel stopping", logger.Error(err))
	}
}

// enqueue adds an utterance to the pending queue, discarding the oldest
// entry when full. Newest speech wins: stale utterances are worthless in a
// live conversation.
func (c *Channel) enqueue(u *audio.Utterance) {
	for {
		select {
		case c.pending <- u:
			return
		default:
		}
		select {
		case old := <-c.pending:
			c.dropped.Add(1)
			c.log.Warn("pending queue full, dropping oldest utterance",
				logger.Duration("dropped_duration", old.Duration()),
				logger.Int64("total_dropped", c.dropped.Load()))
		default:
		}
	}
}

// processLoop drains the pending queue until it is closed and empty.
func (c *Channel) processLoop(ctx context.Context) {
	for u := range c.pending {
		c.process(ctx, u)
		c.state.Store(int32(StateIdle))
	}
}

// process runs one utterance through the model stages. Model failures are
// logged and absorbed here; only a dead capture source kills the channel.
func (c *Channel) process(ctx context.Context, u *audio.Utterance) {
	c.state.Store(int32(StateTranscribing))
	transcript, err := c.deps.Transcriber.Transcribe(ctx, u, c.cfg.SourceLang)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.log.Error("transcription failed, skipping utterance",
				logger.Duration("utterance", u.Duration()),
				logger.Error(err))
		}
		return
	}
	if transcript == nil {
		// Silence or filtered noise. Nothing to show.
		return
	}

	c.state.Store(int32(StateTranslating))
	text, err := c.deps.Translator.Translate(ctx, transcript.Text, c.cfg.SourceLang, c.cfg.TargetLang)
	failed := false
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		// Untranslated source text is still more useful than nothing on the
		// overlay, so pass it through marked as failed.
		c.log.Error("translation failed, displaying source text", logger.Error(err))
		text = transcript.Text
		failed = true
	}

	c.state.Store(int32(StateCorrecting))
	fixed := text
	var changes []glossary.Change
	if c.deps.Glossary != nil && !failed {
		fixed, changes = c.deps.Glossary.Apply(text, c.cfg.TargetLang)
	}

	msg := Message{
		Channel:    c.cfg.ID,
		SourceLang: c.cfg.SourceLang,
		TargetLang: c.cfg.TargetLang,
		SourceText: transcript.Text,
		Text:       fixed,
		Failed:     failed,
		Changes:    changes,
		Timestamp:  c.now(),
	}
	if c.cfg.Transliterate && translit.HasCyrillic(fixed) {
		msg.Romanized = translit.Romanize(fixed)
	}

	c.state.Store(int32(StateDisplaying))
	c.deps.Display.Show(msg)

	c.record(msg, text)
}

// record persists the message to the change log and session storage.
// Persistence failures are logged and ignored; the overlay already has the
// text and losing one record beats stalling the channel.
func (c *Channel) record(msg Message, raw string) {
	if c.deps.ChangeLog != nil && len(msg.Changes) > 0 {
		err := c.deps.ChangeLog.Append(changelog.Record{
			Channel:   msg.Channel,
			LangPair:  fmt.Sprintf("%s->%s", msg.SourceLang, msg.TargetLang),
			Source:    msg.SourceText,
			Raw:       raw,
			Fixed:     msg.Text,
			Timestamp: msg.Timestamp,
		})
		if err != nil {
			c.log.Error("failed to append change log entry", logger.Error(err))
		}
	}
	if c.deps.Store != nil {
		_, err := c.deps.Store.Store(&sqlite.UtteranceRecord{
			Channel:    msg.Channel,
			SourceLang: msg.SourceLang,
			TargetLang: msg.TargetLang,
			SourceText: msg.SourceText,
			RawText:    raw,
			FixedText:  msg.Text,
			Corrected:  len(msg.Changes) > 0,
			CreatedAt:  msg.Timestamp,
		})
		if err != nil {
			c.log.Error("failed to store utterance", logger.Error(err))
		}
	}
}
