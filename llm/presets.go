package llm

// Per-instrument sampling presets. Bass wants the most discipline (walking
// lines degrade fast with repetition), sax gets the loosest rein. Stop
// sequences cut the model off when it starts writing the next instrument.
var instrumentPresets = map[string]GenerationRequest{
	"BASS": {
		MaxTokens:   256,
		Temperature: 0.7,
		TopP:        0.9,
		Stop:        []string{"\n\nDRUMS", "\n\nPIANO", "\n\nSAX", "\n\n"},
	},
	"DRUMS": {
		MaxTokens:   256,
		Temperature: 0.8,
		TopP:        0.9,
		Stop:        []string{"\n\nPIANO", "\n\nSAX", "\n\nBASS", "\n\n"},
	},
	"PIANO": {
		MaxTokens:   256,
		Temperature: 0.75,
		TopP:        0.92,
		Stop:        []string{"\n\nSAX", "\n\nBASS", "\n\nDRUMS", "\n\n"},
	},
	"SAX": {
		MaxTokens:   256,
		Temperature: 0.85,
		TopP:        0.95,
		Stop:        []string{"\n\nBASS", "\n\nDRUMS", "\n\nPIANO", "\n\n"},
	},
}

// PresetFor returns the sampling parameters for an instrument's own call.
// Unknown instruments fall back to the bass preset.
func PresetFor(instrument string) GenerationRequest {
	preset, ok := instrumentPresets[instrument]
	if !ok {
		preset = instrumentPresets["BASS"]
	}
	preset.Stop = append([]string(nil), preset.Stop...)
	return preset
}

// BatchedPreset returns sampling parameters sized for all four instruments
// in a single response.
func BatchedPreset() GenerationRequest {
	return GenerationRequest{
		MaxTokens:   1024,
		Temperature: 0.8,
		TopP:        0.92,
	}
}
