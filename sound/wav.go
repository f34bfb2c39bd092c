package sound

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// EncodeWAV renders s into a 16-bit stereo WAV file held in memory.
func EncodeWAV(s beep.Streamer, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		sampleRate = defaultRate
	}
	format := beep.Format{SampleRate: beep.SampleRate(sampleRate), NumChannels: 2, Precision: 2}
	var buf writeSeeker
	if err := wav.Encode(&buf, s, format); err != nil {
		return nil, fmt.Errorf("sound: encode wav: %w", err)
	}
	return buf.data, nil
}

// writeSeeker is an in-memory io.WriteSeeker; wav.Encode seeks back to patch the header sizes.
type writeSeeker struct {
	data []byte
	pos  int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if end := w.pos + len(p); end > len(w.data) {
		w.data = append(w.data, make([]byte, end-len(w.data))...)
	}
	n := copy(w.data[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.data)) + offset
	default:
		return 0, errors.New("sound: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("sound: negative position")
	}
	w.pos = int(abs)
	return abs, nil
}

// Cache holds rendered WAV bytes per cue. Cues are rendered on first use.
type Cache struct {
	cfg   Config
	mu    sync.RWMutex
	store map[Cue][]byte
}

func NewCache(cfg Config) *Cache {
	return &Cache{cfg: cfg, store: make(map[Cue][]byte)}
}

// WAV returns the encoded cue. The returned slice is shared and must not be modified.
func (c *Cache) WAV(cue Cue) ([]byte, error) {
	c.mu.RLock()
	if b, ok := c.store[cue]; ok {
		c.mu.RUnlock()
		return b, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.store[cue]; ok {
		return b, nil
	}
	s, err := Render(cue, c.cfg)
	if err != nil {
		return nil, err
	}
	b, err := EncodeWAV(s, c.cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	c.store[cue] = b
	return b, nil
}

// Preload renders every cue up front.
func (c *Cache) Preload() error {
	for _, cue := range Cues {
		if _, err := c.WAV(cue); err != nil {
			return err
		}
	}
	return nil
}
