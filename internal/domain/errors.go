package domain

import "errors"

// ErrNotFound reports that a chain object (transaction, receipt, block) does
// not exist on the queried chain.
var ErrNotFound = errors.New("not found")
