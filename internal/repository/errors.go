package repository

import "errors"

// ErrNotFound is returned when a single-entity lookup finds no rows. The
// service layer translates it into a domain-level error so business logic
// never sees sql.ErrNoRows directly.
var ErrNotFound = errors.New("repository: not found")
