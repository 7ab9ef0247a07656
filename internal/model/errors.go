package model

import "errors"

// ErrPermissionDenied is returned by notification primitives when the user
// has not granted notification permission.
var ErrPermissionDenied = errors.New("notification permission denied")
