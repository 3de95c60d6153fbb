package dialog

// GatherMode tells the voice gateway what kind of input to collect next.
type GatherMode string

const (
	GatherSpeech GatherMode = "speech"
	GatherDigits GatherMode = "digits"
)

// Gather describes the input the gateway should listen for after speaking.
type Gather struct {
	Mode      GatherMode `json:"mode"`
	NumDigits int        `json:"num_digits,omitempty"`
}

// VoiceResponse is the voice-control document produced by one dialog turn.
// It is the engine's only externally observable artifact: what to say, what
// to listen for, whether to dial out or hang up. Serialization to the
// gateway's wire format happens outside the engine.
type VoiceResponse struct {
	Say    []string `json:"say"`
	Gather *Gather  `json:"gather,omitempty"`
	Dial   string   `json:"dial,omitempty"`
	HangUp bool     `json:"hang_up,omitempty"`
}

func askSpeech(parts ...string) *VoiceResponse {
	return &VoiceResponse{
		Say:    parts,
		Gather: &Gather{Mode: GatherSpeech},
	}
}

func askDigits(numDigits int, parts ...string) *VoiceResponse {
	return &VoiceResponse{
		Say:    parts,
		Gather: &Gather{Mode: GatherDigits, NumDigits: numDigits},
	}
}

func transferTo(number string, parts ...string) *VoiceResponse {
	return &VoiceResponse{
		Say:  parts,
		Dial: number,
	}
}

func hangUp(parts ...string) *VoiceResponse {
	return &VoiceResponse{
		Say:    parts,
		HangUp: true,
	}
}
