// Package schema implements the type-metadata registry (spec component
// C1) and the data-model predicates (component C2): it reflects declared
// Go types into PropertyDescriptor schemas, maps labels to/from types,
// resolves polymorphism by most-derived type, and enforces the simple/
// complex/collection property-shape rules.
//
// Grounded on infrastructure/persistence/schema/evolution.go's
// version-keyed bookkeeping shape (a monotonically updated map behind a
// single mutex) and domain/config/domain_config.go's environment-keyed
// configuration pattern for the registry's MaxComplexDepth knob.
package schema

import "github.com/google/uuid"

// Direction is the semantic direction of a relationship relative to its
// start node. Storage is always directed; Incoming is represented by
// swapping endpoints at write time (see graphstore.CreateRelationship).
type Direction string

const (
	Outgoing Direction = "OUTGOING"
	Incoming Direction = "INCOMING"
)

// NodeEntity is the marker every user node type must satisfy, by
// embedding NodeBase. Go has no runtime class inheritance, so "Manager
// extends Person" (spec §3/§8 S3) is expressed as Go struct embedding:
// Manager embeds Person anonymously, and the registry's isAssignable
// walks that embedding chain to emulate most-derived resolution.
type NodeEntity interface {
	isGraphNode()
}

// RelationshipEntity is the marker every user relationship type must
// satisfy, by embedding RelationshipBase.
type RelationshipEntity interface {
	isGraphRelationship()
}

// NodeBase is embedded (anonymously) by every user node type.
type NodeBase struct{}

func (NodeBase) isGraphNode() {}

// RelationshipBase is embedded (anonymously) by every user relationship
// type.
type RelationshipBase struct{}

func (RelationshipBase) isGraphRelationship() {}

// NewID generates a process-unique id, for application code that does
// not supply its own — mirrors the teacher's valueobjects.NewNodeID,
// which wraps uuid.New().String() in the same way.
func NewID() string {
	return uuid.New().String()
}
