package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/planejatrip/internal/domain"
)

// pgSessionRepo is the Postgres implementation of SessionRepo.
type pgSessionRepo struct {
	db db
}

// NewSessionRepo constructs a SessionRepo backed by the provided db connection.
func NewSessionRepo(db db) SessionRepo {
	return &pgSessionRepo{db: db}
}

func (r *pgSessionRepo) Create(ctx context.Context, session domain.Session) (domain.Session, error) {
	const q = `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES (@id, @user_id, @expires_at)
		RETURNING id, user_id, created_at, expires_at`

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	args := pgx.NamedArgs{
		"id":         session.ID,
		"user_id":    session.UserID,
		"expires_at": session.ExpiresAt,
	}

	result, err := scanSession(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Session{}, fmt.Errorf("repo.SessionRepo.Create: %w", classifyPG(err, nil))
	}
	return result, nil
}

// Get filters expired rows in SQL so a stale session reads as not found.
func (r *pgSessionRepo) Get(ctx context.Context, id uuid.UUID) (domain.Session, error) {
	const q = `
		SELECT id, user_id, created_at, expires_at
		FROM sessions
		WHERE id = @id AND expires_at > now()`

	result, err := scanSession(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Session{}, fmt.Errorf("repo.SessionRepo.Get: %w", classifyPG(err, nil))
	}
	return result, nil
}

func (r *pgSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = @id`, pgx.NamedArgs{"id": id}); err != nil {
		return fmt.Errorf("repo.SessionRepo.Delete: %w", classifyPG(err, nil))
	}
	return nil
}

func scanSession(s scanner) (domain.Session, error) {
	var (
		sess       domain.Session
		id, userID pgtype.UUID
	)
	if err := s.Scan(&id, &userID, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
		return domain.Session{}, err
	}
	sess.ID = uuid.UUID(id.Bytes)
	sess.UserID = uuid.UUID(userID.Bytes)
	return sess, nil
}
