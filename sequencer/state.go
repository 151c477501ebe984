package sequencer

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
)

// ChainMode selects how tracks with a patched start input behave.
type ChainMode int

const (
	ChainNone     ChainMode = iota // free running
	ChainBoss                      // run until end of cycle, then wait for start
	ChainEmployee                  // wait for start before the first cycle too
	numChainModes
)

var chainModeNames = [numChainModes]string{"NONE", "BOSS", "EMPLOYEE"}

func (c ChainMode) String() string {
	if c < 0 || c >= numChainModes {
		return "ChainMode(" + strconv.Itoa(int(c)) + ")"
	}
	return chainModeNames[c]
}

// ParseChainMode accepts a mode name in any case, or its number.
func ParseChainMode(s string) (ChainMode, error) {
	s = strings.TrimSpace(s)
	for i, name := range chainModeNames {
		if strings.EqualFold(s, name) {
			return ChainMode(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < int(numChainModes) {
		return ChainMode(n), nil
	}
	return ChainNone, fault.New("unknown chain mode "+strconv.Quote(s),
		fmsg.WithDesc("parse chain mode", "Chain mode must be NONE, BOSS or EMPLOYEE"))
}

// Next returns the mode the chain button cycles to.
func (c ChainMode) Next() ChainMode {
	return (c + 1) % numChainModes
}

// MaxMasterTrack is the highest master track selector; 0 means no master.
const MaxMasterTrack = TrackCount

// Settings is the engine state that survives a save and reload. Layouts and
// step positions are recomputed from the knobs instead.
type Settings struct {
	ConstantTime bool      `json:"constantTime"`
	MasterTrack  int       `json:"masterTrack"`
	ChainMode    ChainMode `json:"chainMode"`
	Muted        bool      `json:"muted"`
}

// Normalize clamps out-of-range values from a damaged save.
func (s *Settings) Normalize() {
	if s.MasterTrack < 0 {
		s.MasterTrack = 0
	}
	if s.MasterTrack > MaxMasterTrack {
		s.MasterTrack = MaxMasterTrack
	}
	if s.ChainMode < ChainNone {
		s.ChainMode = ChainNone
	}
	if s.ChainMode >= numChainModes {
		s.ChainMode = ChainEmployee
	}
}

// settingsJSON stores flags as 0/1 integers, the format module patches have
// always used.
type settingsJSON struct {
	ConstantTime json.RawMessage `json:"constantTime,omitempty"`
	MasterTrack  json.RawMessage `json:"masterTrack,omitempty"`
	ChainMode    json.RawMessage `json:"chainMode,omitempty"`
	Muted        json.RawMessage `json:"muted,omitempty"`
}

// MarshalJSON writes flags as integers.
func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ConstantTime int `json:"constantTime"`
		MasterTrack  int `json:"masterTrack"`
		ChainMode    int `json:"chainMode"`
		Muted        int `json:"muted"`
	}{
		ConstantTime: boolInt(s.ConstantTime),
		MasterTrack:  s.MasterTrack,
		ChainMode:    int(s.ChainMode),
		Muted:        boolInt(s.Muted),
	})
}

// UnmarshalJSON accepts booleans or numbers for every field and leaves
// missing fields untouched. Values are clamped, never rejected.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw settingsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if n, ok := jsonNumber(raw.ConstantTime); ok {
		s.ConstantTime = n != 0
	}
	if n, ok := jsonNumber(raw.MasterTrack); ok {
		s.MasterTrack = n
	}
	if n, ok := jsonNumber(raw.ChainMode); ok {
		s.ChainMode = ChainMode(n)
	}
	if n, ok := jsonNumber(raw.Muted); ok {
		s.Muted = n != 0
	}
	s.Normalize()
	return nil
}

func jsonNumber(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return boolInt(b), true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f), true
	}
	return 0, false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
