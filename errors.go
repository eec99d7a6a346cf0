// errors.go
package cinehub

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input parameters")
	ErrNotFound           = errors.New("not found")
	ErrTypeNotFound       = errors.New("preference type not found")
	ErrTypeConflict       = errors.New("preference type already exists")
	ErrInvalidDataType    = errors.New("invalid preference data type")
	ErrEnumNotConfigured  = errors.New("enum preference has no configured allowed values")
	ErrSerialization      = errors.New("serialization error")
	ErrStorageUnavailable = errors.New("storage backend unavailable")
	ErrCacheUnavailable   = errors.New("cache backend unavailable")
)
