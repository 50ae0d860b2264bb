package knowledge

import "time"

// EntryType is the closed category set for knowledge entries.
type EntryType string

const (
	TypeSupport EntryType = "support"
	TypeSales   EntryType = "sales"
	TypeGeneral EntryType = "general"
)

// Valid reports whether the type belongs to the closed enumeration.
func (t EntryType) Valid() bool {
	switch t {
	case TypeSupport, TypeSales, TypeGeneral:
		return true
	}
	return false
}

// Entry is one persisted question/answer record of the knowledge base.
//
// Attachment flags and URLs are stored as provided; a true flag without a URL
// is accepted, matching the admin UI contract.
type Entry struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Type        EntryType `json:"type"`
	System      string    `json:"system"`
	HasVideo    bool      `json:"hasVideo"`
	HasDocument bool      `json:"hasDocument"`
	HasImage    bool      `json:"hasImage"`
	VideoURL    string    `json:"videoUrl,omitempty"`
	DocumentURL string    `json:"documentUrl,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Likes       int64     `json:"likes"`
	Dislikes    int64     `json:"dislikes"`
	Hits        int64     `json:"hits"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NetLikes is the popularity signal used as a ranking tie-break.
func (e Entry) NetLikes() int64 {
	return e.Likes - e.Dislikes
}

// Fields carries the writable content of an entry for create and update.
// Counters are never part of it.
type Fields struct {
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Type        EntryType `json:"type"`
	System      string    `json:"system"`
	HasVideo    bool      `json:"hasVideo"`
	HasDocument bool      `json:"hasDocument"`
	HasImage    bool      `json:"hasImage"`
	VideoURL    string    `json:"videoUrl"`
	DocumentURL string    `json:"documentUrl"`
	ImageURL    string    `json:"imageUrl"`
}
