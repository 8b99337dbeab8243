package repository

import (
	"context"

	"superchat/client/internal/model"
)

// Repository is the local history cache. It holds a write-through snapshot
// of the session list so the client can show recent conversations when the
// backend history call fails at startup.
type Repository interface {
	SaveSession(ctx context.Context, session *model.Session) error
	DeleteSession(ctx context.Context, sid int) error
	LoadSessions(ctx context.Context) ([]model.Session, error)
}
