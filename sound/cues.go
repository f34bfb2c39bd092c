// Package sound synthesizes the wheel's audio cues.
package sound

import (
	"fmt"
	"time"

	"github.com/gopxl/beep"
)

// Cue names one of the wheel's sound effects.
type Cue string

const (
	CueTick    Cue = "tick"
	CueWin     Cue = "win"
	CueJackpot Cue = "jackpot"
	CueMiss    Cue = "miss"
)

// Cues lists every cue in a stable order.
var Cues = []Cue{CueTick, CueWin, CueJackpot, CueMiss}

// TickInterval is how often the tick cue repeats while the wheel turns.
const TickInterval = 100 * time.Millisecond

// Note frequencies in Hz.
const (
	noteC5 = 523.25
	noteE5 = 659.25
	noteG5 = 783.99
)

const (
	tickDuration   = 50 * time.Millisecond
	fanfareBeat    = 150 * time.Millisecond
	fanfareHold    = 800 * time.Millisecond
	missDuration   = 800 * time.Millisecond
	missStartFreq  = 300.0
	missEndFreq    = 100.0
	fanfareLead    = 3 * fanfareBeat
	fanfareLength  = fanfareLead + fanfareHold
	defaultRate    = 44100
	defaultVolume  = 0.8
	tickGain       = 0.3
	fanfareGain    = 0.5
	fanfareTopGain = 0.6
	harmonyGain    = 0.4
	missGain       = 0.6
)

// Config controls rendering.
type Config struct {
	SampleRate int
	Volume     float64 // master gain, 0..1
}

func DefaultConfig() Config {
	return Config{SampleRate: defaultRate, Volume: defaultVolume}
}

func (c Config) rate() beep.SampleRate {
	if c.SampleRate <= 0 {
		return defaultRate
	}
	return beep.SampleRate(c.SampleRate)
}

// Duration reports how long a cue plays.
func Duration(c Cue) time.Duration {
	switch c {
	case CueTick:
		return tickDuration
	case CueWin:
		return fanfareLength
	case CueJackpot:
		return 2 * fanfareLength
	case CueMiss:
		return missDuration
	}
	return 0
}

// Render builds a fresh streamer for c.
func Render(c Cue, cfg Config) (beep.Streamer, error) {
	rate := cfg.rate()
	var s beep.Streamer
	switch c {
	case CueTick:
		s = note(800, tickDuration, WaveSquare, rate, tickGain)
	case CueWin:
		s = fanfare(rate)
	case CueJackpot:
		s = beep.Seq(fanfare(rate), fanfare(rate))
	case CueMiss:
		slide := NewSlide(missStartFreq, missEndFreq, missDuration, WaveTriangle, rate)
		s = newVolume(NewEnvelope(slide, missDuration, 0, missDuration, rate), missGain)
	default:
		return nil, fmt.Errorf("sound: unknown cue %q", c)
	}
	return newVolume(s, cfg.Volume), nil
}

// fanfare is three short C5 blasts and a held G5 over an E5 harmony.
func fanfare(rate beep.SampleRate) beep.Streamer {
	lead := beep.Seq(
		note(noteC5, fanfareBeat, WaveSaw, rate, fanfareGain),
		note(noteC5, fanfareBeat, WaveSaw, rate, fanfareGain),
		note(noteC5, fanfareBeat, WaveSaw, rate, fanfareGain),
		note(noteG5, fanfareHold, WaveSaw, rate, fanfareTopGain),
	)
	harmony := beep.Seq(
		beep.Silence(rate.N(fanfareLead)),
		note(noteE5, fanfareHold, WaveTriangle, rate, harmonyGain),
	)
	return beep.Mix(lead, harmony)
}
