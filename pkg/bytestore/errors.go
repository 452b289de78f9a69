package bytestore

// StoreError is the error type returned by Store and Fragment operations.
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// Errors
var (
	// ErrOutOfRange is returned for indexed access or copies outside the stream.
	ErrOutOfRange = &StoreError{"offset out of range"}

	// ErrInvalidArgument is returned when an edit cannot be applied at the
	// requested position, or when swap ranges overlap.
	ErrInvalidArgument = &StoreError{"invalid argument"}
)
