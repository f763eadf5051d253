package octatrack

var partHeader = [4]byte{'P', 'A', 'R', 'T'}

// MachineSlot is the sample slot assignment of an audio track's machines
type MachineSlot struct {
	StaticSlotID   uint8
	FlexSlotID     uint8
	Unused         [2]uint8
	RecorderSlotID uint8
}

// Part is one of the 4 parts of a bank. Banks store an unsaved and a saved copy of each.
type Part struct {
	Header           [4]uint8
	DataBlock1       [4]uint8
	PartID           uint8
	AudioTrackFX1    [AudioTracks]uint8
	AudioTrackFX2    [AudioTracks]uint8
	ActiveScenes     [2]uint8
	Volumes          [AudioTracks][2]uint8
	MachineTypes     [AudioTracks]uint8
	MachineParams    [AudioTracks][30]uint8
	TrackParams      [AudioTracks][24]uint8
	MachineSetup     [AudioTracks][30]uint8
	MachineSlots     [AudioTracks]MachineSlot
	TrackParamsSetup [AudioTracks][30]uint8
	MidiParams       [MidiTracks][32]uint8
	MidiParamsSetup  [MidiTracks][36]uint8
	RecorderSetup    [AudioTracks][12]uint8
	Scenes           [16][AudioTracks][32]uint8
	SceneXLVs        [16][10]uint8
	AudioCustomLFO   [AudioTracks][16]uint8
	AudioLFOInterp   [AudioTracks][2]uint8
	MidiCustomLFO    [MidiTracks][16]uint8
	MidiLFOInterp    [MidiTracks][2]uint8
	ArpMuteMasks     [16]uint8
	ArpSequences     [MidiTracks][16]uint8
}

// Default parameter blocks, one group of six values per machine or page
var (
	defaultMachineParams = [30]uint8{
		64, 0, 0, 127, 0, 79, // static
		64, 0, 0, 127, 0, 79, // flex
		0, 64, 0, 0, 64, 0,   // thru
		0, 0, 0, 0, 0, 0,     // neighbor
		64, 2, 1, 127, 64, 1, // pickup
	}
	defaultTrackParams = [24]uint8{
		32, 32, 32, 0, 0, 0,      // lfo
		0, 127, 127, 64, 64, 127, // amp
		0, 127, 0, 64, 0, 64,     // fx1
		47, 0, 127, 0, 127, 0,    // fx2
	}
	defaultMachineSetup = [30]uint8{
		1, 0, 0, 0, 1, 64,
		1, 0, 0, 0, 1, 64,
		0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 1, 64,
	}
	defaultTrackParamsSetup = [30]uint8{
		0, 0, 0, 0, 0, 0,
		1, 1, 0, 0, 0, 0,
		0, 0, 1, 0, 3, 0,
		0, 1, 127, 1, 0, 0,
		0, 0, 0, 0, 0, 0,
	}
	defaultMidiParams = [32]uint8{
		48, 100, 6, 64, 64, 64, // midi
		32, 32, 32, 0, 0, 0,    // lfo
		64, 0, 0, 5, 0, 6,      // arp
		64, 0, 127, 0, 0, 64,   // cc1
		0, 0, 0, 0, 0, 0,       // cc2
		0, 0,
	}
	defaultMidiParamsSetup = [36]uint8{
		0, 128, 128, 0, 128, 0, // note
		0, 0, 0, 0, 0, 0,       // lfo1
		0, 0, 7, 0, 0, 0,       // arp
		0, 0, 7, 1, 2, 10,      // cc1
		71, 72, 73, 74, 75, 76, // cc2
		0, 0, 0, 0, 0, 0,       // lfo2
	}
	defaultRecorderSetup = [12]uint8{1, 1, 64, 0, 0, 1, 0, 0, 0, 255, 255, 0}
)

// NewPart returns part id (0-3) in the state the device creates it
func NewPart(id int) Part {
	p := Part{
		Header:       partHeader,
		PartID:       uint8(id),
		ActiveScenes: [2]uint8{0, 8},
	}
	fill(p.AudioTrackFX1[:], 4)
	fill(p.AudioTrackFX2[:], 8)
	for t := 0; t < AudioTracks; t++ {
		p.Volumes[t] = [2]uint8{108, 108}
		p.MachineParams[t] = defaultMachineParams
		p.TrackParams[t] = defaultTrackParams
		p.MachineSetup[t] = defaultMachineSetup
		p.MachineSlots[t] = MachineSlot{
			StaticSlotID:   uint8(t),
			FlexSlotID:     uint8(t),
			RecorderSlotID: uint8(RecorderSlotBase + t),
		}
		p.TrackParamsSetup[t] = defaultTrackParamsSetup
		p.RecorderSetup[t] = defaultRecorderSetup
	}
	for t := 0; t < MidiTracks; t++ {
		p.MidiParams[t] = defaultMidiParams
		p.MidiParamsSetup[t] = defaultMidiParamsSetup
	}
	for s := range p.Scenes {
		for t := range p.Scenes[s] {
			fill(p.Scenes[s][t][:], 255)
		}
		fill(p.SceneXLVs[s][:], 255)
	}
	fill(p.ArpMuteMasks[:], 255)
	return p
}

func (p *Part) checkHeader() error {
	if p.Header != partHeader {
		return formatErr("part", "bad header % x", p.Header)
	}
	return nil
}
