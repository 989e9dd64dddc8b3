package config

import "testing"

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("gentle")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Schedule.Amplitude != 0.5 {
		t.Errorf("expected amplitude 0.5, got %g", cfg.Schedule.Amplitude)
	}

	cfg.Schedule.Amplitude = 99
	if GetPreset("gentle").Schedule.Amplitude != 0.5 {
		t.Error("GetPreset should return an independent copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValidate(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			if err := GetPreset(name).Validate(); err != nil {
				t.Errorf("preset %s invalid: %v", name, err)
			}
		})
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
}
