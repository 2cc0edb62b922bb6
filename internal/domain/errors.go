package domain

import "errors"

// ErrPromptNotFound is returned by repositories when an id does not exist.
var ErrPromptNotFound = errors.New("prompt not found")
