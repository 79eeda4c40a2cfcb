package core

import "errors"

var (
	// ErrNotFound: el customer no existe (o el update afectó cero filas).
	ErrNotFound = errors.New("customer not found")

	// ErrDuplicateEmail: violación del unique por email en un insert.
	ErrDuplicateEmail = errors.New("email already exists")
)
