package pods

import "errors"

// Single canonical error for a missing device backend.
var ErrNoGPU = errors.New("gpu unavailable")
