// Package graph implements the typed reasoning graph: thoughts, their
// weighted reciprocal connections, and multi-node hyperlinks.
//
// The graph is the system of record for a reasoning session. Every mutation
// preserves the reciprocity invariant: a connection from A to B always has a
// mirrored entry on B referencing A (with the semantically inverse type), so
// traversal from either endpoint sees the relation.
//
// Example Usage:
//
//	g := graph.New(nil)
//
//	premise, _ := g.AddThought("All ravens observed so far are black", graph.TypeRegular, nil)
//	conclusion, _ := g.AddThought("Ravens are black", graph.TypeConclusion, []graph.Connection{
//		{TargetID: premise, Type: graph.RelSupports, Strength: 0.8},
//	})
//
//	// The premise now carries the reciprocal supported_by entry.
//	connected, _ := g.ConnectedThoughts(premise)
//	fmt.Println(len(connected)) // 1
//	_ = conclusion
package graph

import (
	"errors"
	"time"
)

// Errors returned by graph operations.
var (
	ErrNotFound        = errors.New("thought not found")
	ErrInvalidType     = errors.New("unknown thought type")
	ErrInvalidRelation = errors.New("unknown connection type")
	ErrInvalidLink     = errors.New("hyperlink requires at least 2 existing nodes")
)

// ThoughtType classifies the role a thought plays in a reasoning chain.
type ThoughtType string

const (
	TypeRegular    ThoughtType = "regular"
	TypeRevision   ThoughtType = "revision"
	TypeMeta       ThoughtType = "meta"
	TypeHypothesis ThoughtType = "hypothesis"
	TypeConclusion ThoughtType = "conclusion"
)

// ValidThoughtType reports whether t is a known thought type.
func ValidThoughtType(t ThoughtType) bool {
	switch t {
	case TypeRegular, TypeRevision, TypeMeta, TypeHypothesis, TypeConclusion:
		return true
	}
	return false
}

// ConnectionType is a semantic relation kind between two thoughts.
type ConnectionType string

// The relation catalogue. Directed kinds come in inverse pairs; contradicts
// and associates are their own inverse.
const (
	RelSupports      ConnectionType = "supports"
	RelSupportedBy   ConnectionType = "supported_by"
	RelContradicts   ConnectionType = "contradicts"
	RelRefines       ConnectionType = "refines"
	RelRefinedBy     ConnectionType = "refined_by"
	RelDerives       ConnectionType = "derives"
	RelDerivedFrom   ConnectionType = "derived_from"
	RelCites         ConnectionType = "cites"
	RelCitedBy       ConnectionType = "cited_by"
	RelElaborates    ConnectionType = "elaborates"
	RelElaboratedBy  ConnectionType = "elaborated_by"
	RelQuestions     ConnectionType = "questions"
	RelQuestionedBy  ConnectionType = "questioned_by"
	RelAnswers       ConnectionType = "answers"
	RelAnsweredBy    ConnectionType = "answered_by"
	RelGeneralizes   ConnectionType = "generalizes"
	RelSpecializes   ConnectionType = "specializes"
	RelPrecedes      ConnectionType = "precedes"
	RelFollows       ConnectionType = "follows"
	RelCauses        ConnectionType = "causes"
	RelCausedBy      ConnectionType = "caused_by"
	RelAssociates    ConnectionType = "associates"
)

// inverseRelations maps each relation kind to the type used on the
// reciprocal entry. Symmetric kinds map to themselves.
var inverseRelations = map[ConnectionType]ConnectionType{
	RelSupports:     RelSupportedBy,
	RelSupportedBy:  RelSupports,
	RelContradicts:  RelContradicts,
	RelRefines:      RelRefinedBy,
	RelRefinedBy:    RelRefines,
	RelDerives:      RelDerivedFrom,
	RelDerivedFrom:  RelDerives,
	RelCites:        RelCitedBy,
	RelCitedBy:      RelCites,
	RelElaborates:   RelElaboratedBy,
	RelElaboratedBy: RelElaborates,
	RelQuestions:    RelQuestionedBy,
	RelQuestionedBy: RelQuestions,
	RelAnswers:      RelAnsweredBy,
	RelAnsweredBy:   RelAnswers,
	RelGeneralizes:  RelSpecializes,
	RelSpecializes:  RelGeneralizes,
	RelPrecedes:     RelFollows,
	RelFollows:      RelPrecedes,
	RelCauses:       RelCausedBy,
	RelCausedBy:     RelCauses,
	RelAssociates:   RelAssociates,
}

// InverseRelation returns the relation type for the reciprocal entry of t,
// and whether t is a known relation kind.
func InverseRelation(t ConnectionType) (ConnectionType, bool) {
	inv, ok := inverseRelations[t]
	return inv, ok
}

// Closed attribute enums for connection qualification. Empty means unset.
type (
	Temporality    string
	Certainty      string
	Directionality string
	Scope          string
	Nature         string
)

const (
	TemporalBefore Temporality = "before"
	TemporalDuring Temporality = "during"
	TemporalAfter  Temporality = "after"

	CertaintyDefinite Certainty = "definite"
	CertaintyProbable Certainty = "probable"
	CertaintySpeculative Certainty = "speculative"

	DirectionUni  Directionality = "unidirectional"
	DirectionBi   Directionality = "bidirectional"

	ScopeLocal  Scope = "local"
	ScopeGlobal Scope = "global"

	NatureLogical   Nature = "logical"
	NatureCausal    Nature = "causal"
	NatureTemporal  Nature = "temporal"
	NatureSemantic  Nature = "semantic"
)

// ConnectionAttributes qualifies a connection beyond its type. The closed
// fields cover the common qualifications; Extra holds genuinely free-form
// extension data validated nowhere.
type ConnectionAttributes struct {
	Temporality    Temporality       `json:"temporality,omitempty"`
	Certainty      Certainty         `json:"certainty,omitempty"`
	Directionality Directionality    `json:"directionality,omitempty"`
	Scope          Scope             `json:"scope,omitempty"`
	Nature         Nature            `json:"nature,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Connection is a typed, weighted edge from the owning thought to TargetID.
type Connection struct {
	TargetID            string                `json:"targetId"`
	Type                ConnectionType        `json:"type"`
	Strength            float64               `json:"strength"`
	Description         string                `json:"description,omitempty"`
	Attributes          *ConnectionAttributes `json:"attributes,omitempty"`
	Inferred            bool                  `json:"inferred,omitempty"`
	InferenceConfidence float64               `json:"inferenceConfidence,omitempty"`
	Bidirectional       bool                  `json:"bidirectional,omitempty"`
}

// Metrics holds the bounded scores computed for a thought.
type Metrics struct {
	Confidence float64 `json:"confidence"`
	Relevance  float64 `json:"relevance"`
	Quality    float64 `json:"quality"`
}

// Thought is one node of the reasoning graph.
type Thought struct {
	ID          string            `json:"id"`
	Content     string            `json:"content"`
	Type        ThoughtType       `json:"type"`
	CreatedAt   time.Time         `json:"createdAt"`
	Connections []Connection      `json:"connections"`
	Metrics     Metrics           `json:"metrics"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// MetadataSession is the metadata key carrying the owning session id, used
// to scope relevance ranking and next-step suggestions.
const MetadataSession = "session"

// Hyperlink is a typed relation spanning two or more thoughts at once.
type Hyperlink struct {
	ID          string            `json:"id"`
	NodeIDs     []string          `json:"nodeIds"`
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Strength    float64           `json:"strength"`
}

// Contains reports whether the hyperlink spans the given node.
func (h *Hyperlink) Contains(nodeID string) bool {
	for _, id := range h.NodeIDs {
		if id == nodeID {
			return true
		}
	}
	return false
}
