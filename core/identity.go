package core

// Static identity tables for the Focusrite Scarlett family.
// PIDs transcribed from the Linux kernel hardware tables.

// VendorID is the Focusrite USB vendor ID.
const VendorID = 0x1235

// MaxChannels is the largest channel count across all supported models.
const MaxChannels = 92

type Generation int

const (
	Gen1 Generation = iota
	Gen2
	Gen3
	Gen4
	Clarett
	ClarettPlus
	Vocaster
)

func (g Generation) String() string {
	switch g {
	case Gen1:
		return "Gen1"
	case Gen2:
		return "Gen2"
	case Gen3:
		return "Gen3"
	case Gen4:
		return "Gen4"
	case Clarett:
		return "Clarett"
	case ClarettPlus:
		return "Clarett+"
	case Vocaster:
		return "Vocaster"
	}
	return "unknown"
}

type Model int

const (
	Scarlett6i6Gen1 Model = iota
	Scarlett8i6Gen1
	Scarlett18i6Gen1
	Scarlett18i8Gen1
	Scarlett18i20Gen1

	Scarlett6i6Gen2
	Scarlett18i8Gen2
	Scarlett18i20Gen2

	ScarlettSoloGen3
	Scarlett2i2Gen3
	Scarlett4i4Gen3
	Scarlett8i6Gen3
	Scarlett18i8Gen3
	Scarlett18i20Gen3

	ScarlettSoloGen4
	Scarlett2i2Gen4
	Scarlett4i4Gen4
	Scarlett16i16Gen4
	Scarlett18i16Gen4
	Scarlett18i20Gen4

	Clarett2PreUSB
	Clarett4PreUSB
	Clarett8PreUSB

	Clarett2PrePlus
	Clarett4PrePlus
	Clarett8PrePlus

	VocasterOne
	VocasterTwo
)

type modelInfo struct {
	pid        uint16
	name       string
	generation Generation

	inputs      int
	outputs     int
	mixerInputs int
	hasMixer    bool
}

var models = map[Model]modelInfo{
	Scarlett6i6Gen1:   {0x8203, "Scarlett 6i6 (1st Gen)", Gen1, 6, 6, 8, true},
	Scarlett8i6Gen1:   {0x8204, "Scarlett 8i6 (1st Gen)", Gen1, 8, 6, 12, true},
	Scarlett18i6Gen1:  {0x8201, "Scarlett 18i6 (1st Gen)", Gen1, 18, 6, 18, true},
	Scarlett18i8Gen1:  {0x8202, "Scarlett 18i8 (1st Gen)", Gen1, 18, 8, 18, true},
	Scarlett18i20Gen1: {0x8200, "Scarlett 18i20 (1st Gen)", Gen1, 18, 20, 18, true},

	Scarlett6i6Gen2:   {0x8211, "Scarlett 6i6 (2nd Gen)", Gen2, 6, 6, 18, true},
	Scarlett18i8Gen2:  {0x8210, "Scarlett 18i8 (2nd Gen)", Gen2, 18, 8, 18, true},
	Scarlett18i20Gen2: {0x820C, "Scarlett 18i20 (2nd Gen)", Gen2, 18, 20, 18, true},

	ScarlettSoloGen3:  {0x8215, "Scarlett Solo (3rd Gen)", Gen3, 2, 2, 0, false},
	Scarlett2i2Gen3:   {0x8214, "Scarlett 2i2 (3rd Gen)", Gen3, 2, 2, 0, false},
	Scarlett4i4Gen3:   {0x8213, "Scarlett 4i4 (3rd Gen)", Gen3, 4, 4, 8, true},
	Scarlett8i6Gen3:   {0x8212, "Scarlett 8i6 (3rd Gen)", Gen3, 8, 6, 10, true},
	Scarlett18i8Gen3:  {0x8217, "Scarlett 18i8 (3rd Gen)", Gen3, 18, 8, 20, true},
	Scarlett18i20Gen3: {0x8218, "Scarlett 18i20 (3rd Gen)", Gen3, 18, 20, 25, true},

	ScarlettSoloGen4:  {0x8223, "Scarlett Solo (4th Gen)", Gen4, 2, 2, 0, false},
	Scarlett2i2Gen4:   {0x8222, "Scarlett 2i2 (4th Gen)", Gen4, 2, 2, 0, false},
	Scarlett4i4Gen4:   {0x8221, "Scarlett 4i4 (4th Gen)", Gen4, 4, 4, 6, true},
	Scarlett16i16Gen4: {0x8220, "Scarlett 16i16 (4th Gen)", Gen4, 16, 16, 20, true},
	Scarlett18i16Gen4: {0x821F, "Scarlett 18i16 (4th Gen)", Gen4, 18, 16, 22, true},
	Scarlett18i20Gen4: {0x821E, "Scarlett 18i20 (4th Gen)", Gen4, 18, 20, 25, true},

	Clarett2PreUSB: {0x8206, "Clarett 2Pre USB", Clarett, 10, 4, 10, true},
	Clarett4PreUSB: {0x8207, "Clarett 4Pre USB", Clarett, 18, 8, 18, true},
	Clarett8PreUSB: {0x8208, "Clarett 8Pre USB", Clarett, 18, 20, 18, true},

	// Clarett+ 8Pre shares PID 0x820C with the Scarlett 18i20 Gen2 in the
	// hardware tables this was transcribed from; the reverse lookup below
	// resolves 0x820C to the 18i20 Gen2, so this entry is unreachable
	// from LookupProductID.
	Clarett2PrePlus: {0x820A, "Clarett+ 2Pre", ClarettPlus, 10, 4, 10, true},
	Clarett4PrePlus: {0x820B, "Clarett+ 4Pre", ClarettPlus, 18, 8, 18, true},
	Clarett8PrePlus: {0x820C, "Clarett+ 8Pre", ClarettPlus, 18, 20, 18, true},

	VocasterOne: {0x8209, "Vocaster One", Vocaster, 2, 2, 0, false},
	VocasterTwo: {0x8219, "Vocaster Two", Vocaster, 4, 4, 0, false},
}

var pidToModel = func() map[uint16]Model {
	m := make(map[uint16]Model, len(models))
	for model, info := range models {
		if model == Clarett8PrePlus {
			// see the 0x820C note above
			continue
		}
		m[info.pid] = model
	}
	return m
}()

// LookupProductID resolves a USB product ID to a known model.
func LookupProductID(pid uint16) (Model, bool) {
	m, ok := pidToModel[pid]
	return m, ok
}

func (m Model) Name() string {
	return models[m].name
}

func (m Model) ProductID() uint16 {
	return models[m].pid
}

func (m Model) Generation() Generation {
	return models[m].generation
}

func (m Model) NumInputs() int {
	return models[m].inputs
}

func (m Model) NumOutputs() int {
	return models[m].outputs
}

func (m Model) NumMixerInputs() int {
	return models[m].mixerInputs
}

func (m Model) HasMixer() bool {
	return models[m].hasMixer
}

// HasRouting reports whether the model exposes a routing matrix. The small
// desktop units route a fixed monitor mix and have no matrix.
func (m Model) HasRouting() bool {
	return models[m].hasMixer
}

func (m Model) String() string {
	return m.Name()
}
