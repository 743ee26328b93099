package usage

import "errors"

var (
	ErrUnknownKind  = errors.New("usage: unknown counter kind")
	ErrStoreFailure = errors.New("usage: counter store failure")
)
