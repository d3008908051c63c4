package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// ErrConflict indicates a uniqueness constraint rejected the write.
var ErrConflict = errors.New("repository: conflict")

// ErrRestricted indicates referential integrity refused a delete.
var ErrRestricted = errors.New("repository: restricted by references")

// ErrInvalidArgument indicates the storage layer rejected malformed input.
var ErrInvalidArgument = errors.New("repository: invalid argument")
