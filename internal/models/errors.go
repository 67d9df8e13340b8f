package models

import "errors"

var ErrMalformedRecord = errors.New("malformed record")
