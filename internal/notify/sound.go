package notify

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"

	"smedge-submit/internal/logx"
)

// Sound plays a WAV file. Notify returns once playback has started; call
// Wait before the process exits or the alert is cut off.
type Sound struct {
	Path string
}

var speakerInit sync.Once
var speakerErr error

// playbackTracker counts alert sounds still playing on the speaker.
type playbackTracker struct {
	wg sync.WaitGroup
}

func (p *playbackTracker) start() { p.wg.Add(1) }

func (p *playbackTracker) finish() { p.wg.Done() }

func (p *playbackTracker) wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

var playback playbackTracker

// Wait blocks until every alert sound started by Sound.Notify has finished,
// or timeout elapses. It reports whether playback finished.
func Wait(timeout time.Duration) bool {
	return playback.wait(timeout)
}

func (s Sound) Notify(ctx context.Context, _ Event) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("open alert sound: %w", err)
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("decode alert sound %s: %w", s.Path, err)
	}

	speakerInit.Do(func() {
		speakerErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if speakerErr != nil {
		_ = streamer.Close()
		return fmt.Errorf("init speaker: %w", speakerErr)
	}

	logger := logx.FromContext(ctx)
	playback.start()
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		defer playback.finish()
		if err := streamer.Close(); err != nil {
			logger.Debug("close alert sound", "err", err)
		}
	})))
	return nil
}
