package kpi

type constError string

func (e constError) Error() string { return string(e) }

// ErrStore wraps every failure of the underlying store. Callers map it to an
// internal error without exposing the cause.
const ErrStore = constError("store error")
