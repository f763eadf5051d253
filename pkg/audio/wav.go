// Package audio reads WAV sample files and builds Octatrack attributes for them
package audio

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/james-see/octatools/pkg/octatrack"
)

// ErrInvalidWAV is returned for files the WAV decoder rejects
var ErrInvalidWAV = errors.New("invalid wav file")

// Info describes a WAV file
type Info struct {
	Path       string        `json:"path" yaml:"path"`
	SampleRate int           `json:"sample_rate" yaml:"sample_rate"`
	BitDepth   int           `json:"bit_depth" yaml:"bit_depth"`
	Channels   int           `json:"channels" yaml:"channels"`
	Frames     uint32        `json:"frames" yaml:"frames"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// Supported reports whether the device can play the file without conversion
func (i *Info) Supported() bool {
	return (i.SampleRate == 44100) &&
		(i.BitDepth == 16 || i.BitDepth == 24) &&
		(i.Channels == 1 || i.Channels == 2)
}

// ReadInfo decodes the header of a WAV file
func ReadInfo(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%s: failed to find pcm data: %w", path, err)
	}
	info := &Info{
		Path:       path,
		SampleRate: int(d.SampleRate),
		BitDepth:   int(d.BitDepth),
		Channels:   int(d.NumChans),
	}
	frameSize := int64(d.NumChans) * int64(d.BitDepth/8)
	if frameSize > 0 {
		info.Frames = uint32(d.PCMLen() / frameSize)
	}
	if info.SampleRate > 0 {
		info.Duration = time.Duration(info.Frames) * time.Second / time.Duration(info.SampleRate)
	}
	return info, nil
}

// SettingsForSlot returns attribute settings matching a project sample slot
func SettingsForSlot(s octatrack.SampleSlot) octatrack.AttributeSettings {
	settings := octatrack.DefaultAttributeSettings()
	if s.BPM > 0 {
		settings.BPM = float64(s.BPM)
	}
	settings.Timestretch = s.Timestretch
	settings.Loop = s.Loop
	settings.TrigQuantization = s.TrigQuantization
	return settings
}

// BuildAttributes returns attributes spanning the whole WAV file at path
func BuildAttributes(path string, s octatrack.AttributeSettings) (*octatrack.Attributes, error) {
	info, err := ReadInfo(path)
	if err != nil {
		return nil, err
	}
	a, err := octatrack.NewAttributes(s, info.Frames, info.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// WriteAttributes builds attributes for the WAV file at path and writes them next to it.
// An existing attributes file is kept unless overwrite is set.
func WriteAttributes(path string, s octatrack.AttributeSettings, overwrite bool) (string, error) {
	dest := octatrack.AttributesPath(path)
	if !overwrite {
		if _, err := os.Stat(dest); err == nil {
			return "", fmt.Errorf("%s already exists", dest)
		}
	}
	a, err := BuildAttributes(path, s)
	if err != nil {
		return "", err
	}
	if err := octatrack.WriteAttributesFile(dest, a); err != nil {
		return "", err
	}
	return dest, nil
}

// WriteSilence writes a WAV file of frames silent frames
func WriteSilence(path string, sampleRate, bitDepth, channels, frames int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Data:           make([]int, frames*channels),
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("failed to write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finish wav file: %w", err)
	}
	return f.Close()
}
