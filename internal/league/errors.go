package league

import "errors"

// ErrNotFound wraps every store lookup or mutation that matched no row.
var ErrNotFound = errors.New("not found")
