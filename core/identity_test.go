package core

import "testing"

func TestLookupProductID(t *testing.T) {
	model, ok := LookupProductID(0x821E)
	if !ok {
		t.Fatal("0x821E not recognized")
	}
	if model.Name() != "Scarlett 18i20 (4th Gen)" {
		t.Errorf("0x821E = %q", model.Name())
	}
	if model.Generation() != Gen4 {
		t.Errorf("0x821E generation = %s", model.Generation())
	}

	model, ok = LookupProductID(0x8204)
	if !ok {
		t.Fatal("0x8204 not recognized")
	}
	if model.Name() != "Scarlett 8i6 (1st Gen)" {
		t.Errorf("0x8204 = %q", model.Name())
	}
	if model.Generation() != Gen1 {
		t.Errorf("0x8204 generation = %s", model.Generation())
	}

	if _, ok := LookupProductID(0x0000); ok {
		t.Error("0x0000 should not resolve")
	}
	if _, ok := LookupProductID(0xFFFF); ok {
		t.Error("0xFFFF should not resolve")
	}
}

func TestSharedProductIDResolvesToScarlett(t *testing.T) {
	// 0x820C is listed for both the 18i20 Gen2 and the Clarett+ 8Pre; the
	// reverse lookup must pick the Scarlett.
	model, ok := LookupProductID(0x820C)
	if !ok {
		t.Fatal("0x820C not recognized")
	}
	if model != Scarlett18i20Gen2 {
		t.Errorf("0x820C = %q", model.Name())
	}
}

func TestModelTableComplete(t *testing.T) {
	for model, info := range models {
		if info.name == "" {
			t.Errorf("model %d has no name", model)
		}
		if info.pid == 0 {
			t.Errorf("model %q has no product ID", info.name)
		}
		if info.inputs <= 0 || info.outputs <= 0 {
			t.Errorf("model %q has no channel counts", info.name)
		}
		if info.hasMixer && info.mixerInputs <= 0 {
			t.Errorf("model %q has a mixer with no inputs", info.name)
		}
	}
}

func TestGenerationString(t *testing.T) {
	if Gen4.String() != "Gen4" {
		t.Errorf("Gen4 = %q", Gen4.String())
	}
	if ClarettPlus.String() != "Clarett+" {
		t.Errorf("ClarettPlus = %q", ClarettPlus.String())
	}
	if Generation(99).String() != "unknown" {
		t.Errorf("unknown generation = %q", Generation(99).String())
	}
}
