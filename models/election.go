package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/gosimple/slug"
)

// ElectionTemplate is the administrator supplied description of an election.
type ElectionTemplate struct {
	Name              string `json:"name"`
	Start             uint32 `json:"start"`
	End               uint32 `json:"end"`
	Question          string `json:"question"`
	Choices           string `json:"choices"`
	SignatureRequired bool   `json:"signature_required"`
}

// CandidateChoice binds a candidate label to its voting address. The position
// of a candidate in Election.Candidates is its derivation index.
type CandidateChoice struct {
	Address string `json:"address"`
	Choice  string `json:"choice"`
}

type Election struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	StartHeight       uint32            `json:"start_height"`
	EndHeight         uint32            `json:"end_height"`
	Question          string            `json:"question"`
	Candidates        []CandidateChoice `json:"candidates"`
	SignatureRequired bool              `json:"signature_required"`
	Cmx               common.Hash       `json:"cmx"`
	Nf                common.Hash       `json:"nf"`
}

// ElectionData is the bundle handed back to the administrator. Seed is the
// plaintext recovery phrase and must never be logged.
type ElectionData struct {
	Seed     string   `json:"seed"`
	Election Election `json:"election"`
}

// ElectionID returns the storage identifier for an election name.
func ElectionID(name string) string {
	return slug.Make(name)
}

// NewElection builds an election skeleton with zero roots.
func NewElection(tmpl ElectionTemplate, candidates []CandidateChoice) *Election {
	return &Election{
		ID:                ElectionID(tmpl.Name),
		Name:              tmpl.Name,
		StartHeight:       tmpl.Start,
		EndHeight:         tmpl.End,
		Question:          tmpl.Question,
		Candidates:        candidates,
		SignatureRequired: tmpl.SignatureRequired,
	}
}

// Finalized reports whether both commitment roots have been computed.
func (e *Election) Finalized() bool {
	return e.Cmx != (common.Hash{}) && e.Nf != (common.Hash{})
}
