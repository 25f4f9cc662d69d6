package orderedview

import "github.com/Felmond13/orderedview/viewcore"

// The error kinds spec.md §6 says this package surfaces, re-exported so
// callers can type-assert against orderedview.*Error without reaching
// into the internal viewcore package.
type (
	NotRegisteredError            = viewcore.NotRegisteredError
	VersionMismatchError          = viewcore.VersionMismatchError
	StorageError                  = viewcore.StorageError
	MutationDuringIterationError  = viewcore.MutationDuringIterationError
	InvalidPageChainError         = viewcore.InvalidPageChainError
	UserCallbackError             = viewcore.UserCallbackError
)
