package graph

import "errors"

var (
	// ErrNodeNotFound is returned when a transition references a node id that is not
	// part of the model.
	ErrNodeNotFound = errors.New("node not found")
	// ErrEdgeNotFound is returned when a transition references an unknown edge id.
	ErrEdgeNotFound = errors.New("edge not found")
	// ErrDuplicateID is returned when a node or edge id is already taken.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrUnknownOperator is returned for comparison operators outside the dialect.
	ErrUnknownOperator = errors.New("unknown operator")
	// ErrInvalidLink is returned for predicate links with missing endpoints.
	ErrInvalidLink = errors.New("invalid predicate link")
)
