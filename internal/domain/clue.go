package domain

// ClueKind discriminates the clue content variants.
type ClueKind string

const (
	ClueText     ClueKind = "text"
	ClueImage    ClueKind = "image"
	ClueQuestion ClueKind = "question"
)

// ClueContent is the typed content attached to a station. The source system
// stored clues as free-form blobs; here each kind carries only its own fields.
type ClueContent struct {
	Kind     ClueKind `json:"kind"`
	Text     string   `json:"text,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Question string   `json:"question,omitempty"`
	Answers  []string `json:"answers,omitempty"`
}

// DisplayText extracts the human-readable text of a clue, if it has one.
func (c ClueContent) DisplayText() (string, bool) {
	switch c.Kind {
	case ClueText:
		return c.Text, c.Text != ""
	case ClueQuestion:
		return c.Question, c.Question != ""
	default:
		return "", false
	}
}
