package domain

import "time"

// SourceType identifies the kind of portal content a chunk was cut from.
type SourceType string

const (
	SourceTypeKnowledge SourceType = "knowledge"
	SourceTypeDocument  SourceType = "document"
	SourceTypeCourse    SourceType = "course"
	SourceTypeOther     SourceType = "other"
)

// IsValid returns true if the source type is known.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeKnowledge, SourceTypeDocument, SourceTypeCourse, SourceTypeOther:
		return true
	}
	return false
}

// ContentChunk is one indexed fragment of portal content.
// Chunks are written by the ingestion pipeline and are read-only here.
// ChunkIndex is unique within (SourceType, SourceID) and defines
// reassembly order; the embedding length is constant across the index.
type ContentChunk struct {
	ID               string
	SourceType       SourceType
	SourceID         string
	ChunkIndex       int
	Title            string
	Content          string
	Embedding        []float32
	VisibleRoles     []UserRole
	VisibleBranchIDs []string // empty means visible to all branches
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// VisibleTo reports whether the chunk may be retrieved under the given
// access context. The same predicate is pushed into the search query;
// this in-process form backs validation and tests.
func (c *ContentChunk) VisibleTo(access *AccessContext) bool {
	if access == nil {
		return false
	}

	roleOK := false
	for _, role := range c.VisibleRoles {
		if role == access.Role {
			roleOK = true
			break
		}
	}
	if !roleOK {
		return false
	}

	if len(c.VisibleBranchIDs) == 0 {
		return true
	}
	for _, branchID := range c.VisibleBranchIDs {
		if branchID != "" && branchID == access.BranchID {
			return true
		}
	}
	return false
}
