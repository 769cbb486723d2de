package graph

import "errors"

var (
	// ErrInvalidArgument is returned by queries handed malformed input,
	// such as an empty node name.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNodeNotFound is returned by per-node queries when no
	// participant in the cache has a node with the requested name and
	// namespace.
	ErrNodeNotFound = errors.New("node name non-existent")
)
