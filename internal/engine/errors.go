package engine

import "errors"

var (
	ErrSchemaVersion = errors.New("model schema version not supported")
	ErrAllocation    = errors.New("tensor allocation failed")
	ErrInvoke        = errors.New("invoke failed")
	ErrNotReady      = errors.New("interpreter not ready")
	ErrResolverFull  = errors.New("op resolver full")
)
