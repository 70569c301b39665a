package message

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// Tone changes how a message is emphasised by the render surface.
type Tone string

const (
	ToneDefault   Tone = "default"
	ToneHighlight Tone = "highlight"
)

// Message represents a single chat bubble.
// Tone is optional: the zero value means no tone was set.
type Message struct {
	ID          string `json:"id"`
	Sender      Sender `json:"sender"`
	Content     string `json:"content"`
	Tone        Tone   `json:"tone,omitempty"`
	IsStreaming bool   `json:"-"`
}

// HasTone reports whether a tone was set explicitly.
func (m Message) HasTone() bool {
	return m.Tone != ""
}

// Highlighted reports whether the message carries the highlight tone.
func (m Message) Highlighted() bool {
	return m.Tone == ToneHighlight
}

// Patch is a shallow update applied by Log.Update. Nil fields are left as is.
type Patch struct {
	Content     *string
	Tone        *Tone
	IsStreaming *bool
}

// Content returns a patch that sets the content only.
func Content(s string) Patch {
	return Patch{Content: &s}
}

// WithTone sets the tone on a copy of p.
func (p Patch) WithTone(t Tone) Patch {
	p.Tone = &t
	return p
}

// WithStreaming sets the streaming flag on a copy of p.
func (p Patch) WithStreaming(b bool) Patch {
	p.IsStreaming = &b
	return p
}

func (p Patch) apply(m *Message) {
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Tone != nil {
		m.Tone = *p.Tone
	}
	if p.IsStreaming != nil {
		m.IsStreaming = *p.IsStreaming
	}
}
