package interval

type constError string

func (e constError) Error() string { return string(e) }

// ErrInvalidInterval is returned for any interval string that is not a positive count
// followed by a recognized unit token.
var ErrInvalidInterval = constError("invalid interval")
