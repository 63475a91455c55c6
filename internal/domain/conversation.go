package domain

// Part is one fragment of message content.
type Part struct {
	Text string `json:"text" firestore:"text"`
}

// Video is an enrichment item attached to a model reply.
type Video struct {
	Type      string `json:"type" firestore:"type"`
	Title     string `json:"title" firestore:"title"`
	URL       string `json:"url" firestore:"url"`
	Thumbnail string `json:"thumbnail,omitempty" firestore:"thumbnail,omitempty"`
}

// Turn is one utterance in a conversation: a role tag plus ordered
// content parts. A model turn may carry enrichment videos.
// Turns are immutable once written.
type Turn struct {
	Role   Role    `json:"role" firestore:"role"`
	Parts  []Part  `json:"parts" firestore:"parts"`
	Videos []Video `json:"videos,omitempty" firestore:"videos,omitempty"`
}

// Text returns the concatenated part text of the turn.
func (t Turn) Text() string {
	var out string
	for _, p := range t.Parts {
		out += p.Text
	}
	return out
}

// NewTurn builds a single-part turn.
func NewTurn(role Role, text string) Turn {
	return Turn{Role: role, Parts: []Part{{Text: text}}}
}

// Session is a durable, append-only conversation history.
//
// A session is logically owned by one caller but may be stored under
// two keys during the identifier migration: the stable subject id
// (primary) and the legacy email alias. The reconciler is responsible
// for never duplicating turns between the two copies.
type Session struct {
	Ref SessionRef

	// Prompt and Reply mirror the first turn, set once at creation.
	Prompt string
	Reply  string

	Turns []Turn

	CreatedAt Timestamp
	UpdatedAt Timestamp
}
