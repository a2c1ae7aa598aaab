package graph

import "errors"

var (
	// ErrMalformed indicates bytes that are not a valid GraphDef or SavedModel.
	ErrMalformed = errors.New("graph: malformed protobuf")

	// ErrTagsNotFound indicates a SavedModel without a meta graph for the requested tags.
	ErrTagsNotFound = errors.New("graph: no meta graph with requested tags")

	// ErrClosed is returned when using a closed graph or bundle.
	ErrClosed = errors.New("graph: closed")
)
