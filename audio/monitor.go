// Package audio runs the engine from the sound card callback and mixes a
// click per gate so the patterns can be heard.
package audio

import (
	"math"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"go-golomb/debug"
	"go-golomb/sequencer"
)

// Click pitches per track, low to high so tracks are told apart by ear.
var trackPitch = [sequencer.TrackCount]float64{220, 330, 440, 660}

const (
	eocPitch   = 1760.0
	clickDecay = 0.012 // seconds for a click to fall to 1/e
	beatLevel  = 0.5
)

type voice struct {
	phase float64 // cycles
	freq  float64
	amp   float64
}

func (v *voice) trigger(freq, amp float64) {
	v.phase = 0
	v.freq = freq
	v.amp = amp
}

func (v *voice) next(dt, decay float64) float64 {
	if v.amp < 1e-4 {
		return 0
	}
	s := math.Sin(2*math.Pi*v.phase) * v.amp
	v.phase += v.freq * dt
	if v.phase >= 1 {
		v.phase -= math.Floor(v.phase)
	}
	v.amp *= decay
	return s
}

// Monitor is a beep.Streamer that renders the engine and mixes clicks for
// rising beat and end of cycle gates. Accented beats are louder.
type Monitor struct {
	m     *sequencer.Manager
	dt    float64
	decay float64

	mu     sync.Mutex
	volume float64
	muted  [sequencer.TrackCount]bool

	voices [sequencer.TrackCount][2]voice // beat, end of cycle
	prev   [sequencer.TrackCount][2]bool
	gains  [sequencer.TrackCount][2]float64 // left, right
}

// NewMonitor creates a monitor for m with volume 0..1.
func NewMonitor(m *sequencer.Manager, volume float64) *Monitor {
	sr := m.SampleRate()
	mon := &Monitor{
		m:      m,
		dt:     1 / sr,
		decay:  math.Exp(-1 / (clickDecay * sr)),
		volume: volume,
	}
	// Spread tracks across the stereo field with constant power panning.
	for i := range mon.gains {
		pan := (float64(i) + 0.5) / sequencer.TrackCount // 0 = left, 1 = right
		mon.gains[i] = [2]float64{math.Cos(pan * math.Pi / 2), math.Sin(pan * math.Pi / 2)}
	}
	return mon
}

// SetVolume changes the click volume, 0..1.
func (mon *Monitor) SetVolume(v float64) {
	mon.mu.Lock()
	mon.volume = min(max(v, 0), 1)
	mon.mu.Unlock()
}

// Volume returns the click volume.
func (mon *Monitor) Volume() float64 {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	return mon.volume
}

// SetTrackMuted silences the clicks of one track without touching its gates.
func (mon *Monitor) SetTrackMuted(track int, muted bool) {
	if track < 0 || track >= sequencer.TrackCount {
		return
	}
	mon.mu.Lock()
	mon.muted[track] = muted
	mon.mu.Unlock()
}

// TrackMuted reports whether a track's clicks are silenced.
func (mon *Monitor) TrackMuted(track int) bool {
	if track < 0 || track >= sequencer.TrackCount {
		return false
	}
	mon.mu.Lock()
	defer mon.mu.Unlock()
	return mon.muted[track]
}

// Stream renders len(samples) engine samples. It never runs dry.
func (mon *Monitor) Stream(samples [][2]float64) (n int, ok bool) {
	mon.mu.Lock()
	volume := mon.volume
	muted := mon.muted
	mon.mu.Unlock()

	mon.m.Render(len(samples), func(i int, out *sequencer.Outputs) {
		var l, r float64
		for t := range out.Tracks {
			o := &out.Tracks[t]
			beat := o.Beat > 0
			eoc := o.EndOfCycle > 0
			if beat && !mon.prev[t][0] {
				amp := beatLevel
				if o.Accent > 0 {
					amp = 1
				}
				mon.voices[t][0].trigger(trackPitch[t], amp)
			}
			if eoc && !mon.prev[t][1] {
				mon.voices[t][1].trigger(eocPitch, beatLevel)
			}
			mon.prev[t] = [2]bool{beat, eoc}

			s := mon.voices[t][0].next(mon.dt, mon.decay) + mon.voices[t][1].next(mon.dt, mon.decay)
			if muted[t] {
				continue
			}
			l += s * mon.gains[t][0]
			r += s * mon.gains[t][1]
		}
		samples[i][0] = l * volume / 2
		samples[i][1] = r * volume / 2
	})
	return len(samples), true
}

// Err implements beep.Streamer.
func (mon *Monitor) Err() error {
	return nil
}

var _ beep.Streamer = (*Monitor)(nil)

// Start opens the default output device and plays mon. bufferMs sets the
// callback period, which is also the control latency.
func Start(mon *Monitor, bufferMs int) error {
	sr := beep.SampleRate(int(mon.m.SampleRate()))
	if err := speaker.Init(sr, sr.N(time.Duration(bufferMs)*time.Millisecond)); err != nil {
		return fault.Wrap(err, fmsg.WithDesc("init speaker", "Could not open the audio device"))
	}
	speaker.Play(mon)
	debug.Log("audio", "playing at %d Hz, %d ms buffer", int(sr), bufferMs)
	return nil
}

// Stop silences and releases the audio device.
func Stop() {
	speaker.Clear()
	speaker.Close()
}
