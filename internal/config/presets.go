package config

import "sort"

func preset(mutate func(c *Config)) *Config {
	c := DefaultConfig()
	mutate(c)
	return c
}

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"quick": preset(func(c *Config) {
		c.Name = "quick"
		c.Dt = 0.001
		c.Duration = 5.0
		c.Schedule.StopKick = 4.0
	}),
	"gentle": preset(func(c *Config) {
		c.Name = "gentle"
		c.Schedule.Amplitude = 0.5
		c.Schedule.PulseInterval = 0.5
	}),
	"violent": preset(func(c *Config) {
		c.Name = "violent"
		c.Schedule.Amplitude = 2.0
		c.Schedule.PulseInterval = 0.1
	}),
	"late-shutoff": preset(func(c *Config) {
		c.Name = "late-shutoff"
		c.Schedule.StopFlow = 3.0
		c.Schedule.KickStart = 4.0
		c.Duration = 30.0
		c.Schedule.StopKick = 25.0
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
