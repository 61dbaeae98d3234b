// Package textunit holds the translatable text units a loaded page is made
// of and the store that owns them. The preload orchestrator never mutates
// unit structs directly; all changes go through the Store, which hands out
// copies only.
package textunit

// Direction selects which side of a unit an operation applies to.
type Direction int

const (
	// Source addresses the original-language text and its audio fields.
	Source Direction = iota
	// Target addresses the translated text and its audio fields.
	Target
)

// String returns the lowercase name of the direction.
func (d Direction) String() string {
	if d == Target {
		return "target"
	}
	return "source"
}

// Unit is one translatable text unit (a speech bubble, caption or panel
// label). Audio paths and ready flags are owned by the Store.
type Unit struct {
	ID             string `json:"id"`
	SourceText     string `json:"source_text"`
	TranslatedText string `json:"translated_text"`

	SourceAudioPath  string `json:"source_audio_path,omitempty"`
	SourceAudioReady bool   `json:"source_audio_ready"`
	TargetAudioPath  string `json:"target_audio_path,omitempty"`
	TargetAudioReady bool   `json:"target_audio_ready"`
}

// Text returns the text for the given direction.
func (u Unit) Text(d Direction) string {
	if d == Target {
		return u.TranslatedText
	}
	return u.SourceText
}

// AudioReady reports whether the audio for the given direction is ready.
func (u Unit) AudioReady(d Direction) bool {
	if d == Target {
		return u.TargetAudioReady
	}
	return u.SourceAudioReady
}

// AudioPath returns the audio path for the given direction.
func (u Unit) AudioPath(d Direction) string {
	if d == Target {
		return u.TargetAudioPath
	}
	return u.SourceAudioPath
}
