package core

import "math"

// MinDB is the mixer volume floor. Zero volume maps to this in both
// directions of the unit conversions.
const MinDB = -127.0

// MixerChannel is one strip of the hardware mixer.
type MixerChannel struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	VolumeDB   float64 `json:"volumeDb"`
	Pan        float64 `json:"pan"` // -1 left .. +1 right
	Muted      bool    `json:"muted"`
	Solo       bool    `json:"solo"`
	StereoPair *int    `json:"stereoPair,omitempty"`
}

func NewMixerChannel(index int, name string) MixerChannel {
	return MixerChannel{
		Index:    index,
		Name:     name,
		VolumeDB: 0,
		Pan:      0,
	}
}

// MixerState is the full mixer snapshot for one device.
type MixerState struct {
	Channels       []MixerChannel `json:"channels"`
	MasterVolumeDB float64        `json:"masterVolumeDb"`
	MasterMuted    bool           `json:"masterMuted"`
}

func NewMixerState() MixerState {
	return MixerState{Channels: []MixerChannel{}}
}

// LevelMeter tracks current and peak level for one channel.
type LevelMeter struct {
	LevelDB float64 `json:"levelDb"`
	PeakDB  float64 `json:"peakDb"`
}

func NewLevelMeter() LevelMeter {
	return LevelMeter{LevelDB: MinDB, PeakDB: MinDB}
}

func (m *LevelMeter) Update(levelDB float64) {
	m.LevelDB = levelDB
	if levelDB > m.PeakDB {
		m.PeakDB = levelDB
	}
}

func (m *LevelMeter) ResetPeak() {
	m.PeakDB = m.LevelDB
}

// DBToLinear converts decibels to linear gain.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear gain to decibels, flooring at MinDB.
func LinearToDB(gain float64) float64 {
	if gain <= 0 {
		return MinDB
	}
	return 20 * math.Log10(gain)
}
