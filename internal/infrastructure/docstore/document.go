package docstore

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/preptrack/core/internal/domain/entities"
)

// SchemaVersion is written into every persisted document. Older documents
// are read forward: unknown fields are ignored and missing optional fields
// are defaulted by normalize.
const SchemaVersion = 1

// Document is the whole persisted state: every topic, problem and study
// session lives in this one envelope, saved atomically as a unit.
type Document struct {
	SchemaVersion int                     `json:"schema_version"`
	Topics        []entities.Topic        `json:"topics"`
	Problems      []entities.Problem      `json:"problems"`
	Sessions      []entities.StudySession `json:"sessions"`
}

// NewDocument returns an empty well-formed document.
func NewDocument() *Document {
	return &Document{
		SchemaVersion: SchemaVersion,
		Topics:        []entities.Topic{},
		Problems:      []entities.Problem{},
		Sessions:      []entities.StudySession{},
	}
}

// normalize defaults fields a hand-edited or older document may be missing.
func (d *Document) normalize() {
	if d.SchemaVersion == 0 {
		d.SchemaVersion = SchemaVersion
	}
	if d.Topics == nil {
		d.Topics = []entities.Topic{}
	}
	if d.Problems == nil {
		d.Problems = []entities.Problem{}
	}
	if d.Sessions == nil {
		d.Sessions = []entities.StudySession{}
	}

	for i := range d.Problems {
		p := &d.Problems[i]
		if p.Status == "" {
			p.Status = entities.StatusNotStarted
		}
		if p.Notes == nil {
			p.Notes = []string{}
		}
		if p.TimeSpentMinutes < 0 {
			p.TimeSpentMinutes = 0
		}
	}

	for i := range d.Sessions {
		s := &d.Sessions[i]
		if s.ProblemIDs == nil {
			s.ProblemIDs = []uuid.UUID{}
		}
		if s.DurationMinutes < 0 {
			s.DurationMinutes = 0
		}
	}
}

// Clone deep-copies the document through a JSON round trip. Used to snapshot
// state before a mutation so a failed save can roll back.
func (d *Document) Clone() (*Document, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	var snapshot Document
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, err
	}
	snapshot.normalize()

	return &snapshot, nil
}
