package sentinel

import "errors"

// Infrastructure facts returned (optionally wrapped) by stores and adapters.
// Services translate them into coded errors from pkg/domain-errors.
//
//   - ErrNotFound: the row or message does not exist
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrInvalidState: the row is not in the state the write requires
//   - ErrUnavailable: the backing service could not be reached
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
