package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/planejatrip/internal/domain"
)

// pgInviteRepo is the Postgres implementation of InviteRepo.
type pgInviteRepo struct {
	db db
}

// NewInviteRepo constructs an InviteRepo backed by the provided db connection.
func NewInviteRepo(db db) InviteRepo {
	return &pgInviteRepo{db: db}
}

const inviteColumns = `id, trip_id, trip_name, host_email, host_name, guest_email,
		permission, status, version, created_at, updated_at`

func (r *pgInviteRepo) Create(ctx context.Context, invite domain.Invite) (domain.Invite, error) {
	const q = `
		INSERT INTO invites (id, trip_id, trip_name, host_email, host_name, guest_email, permission, status)
		VALUES (@id, @trip_id, @trip_name, @host_email, @host_name, @guest_email, @permission, @status)
		RETURNING ` + inviteColumns

	if invite.ID == uuid.Nil {
		invite.ID = uuid.New()
	}
	if invite.Status == "" {
		invite.Status = domain.InvitePending
	}
	args := pgx.NamedArgs{
		"id":          invite.ID,
		"trip_id":     invite.TripID,
		"trip_name":   invite.TripName,
		"host_email":  domain.NormalizeEmail(invite.HostEmail),
		"host_name":   invite.HostName,
		"guest_email": domain.NormalizeEmail(invite.GuestEmail),
		"permission":  string(invite.Permission),
		"status":      string(invite.Status),
	}

	result, err := scanInvite(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Invite{}, fmt.Errorf("repo.InviteRepo.Create: %w", classifyPG(err, domain.ErrDuplicateInvite))
	}
	return result, nil
}

func (r *pgInviteRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Invite, error) {
	const q = `SELECT ` + inviteColumns + ` FROM invites WHERE id = @id`

	result, err := scanInvite(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Invite{}, fmt.Errorf("repo.InviteRepo.GetByID: %w", classifyPG(err, nil))
	}
	return result, nil
}

func (r *pgInviteRepo) List(ctx context.Context) ([]domain.Invite, error) {
	const q = `SELECT ` + inviteColumns + ` FROM invites ORDER BY created_at, id`

	invites, err := r.query(ctx, q, nil)
	if err != nil {
		return nil, fmt.Errorf("repo.InviteRepo.List: %w", err)
	}
	return invites, nil
}

func (r *pgInviteRepo) ListActionable(ctx context.Context, email string) ([]domain.Invite, error) {
	const q = `
		SELECT ` + inviteColumns + `
		FROM invites
		WHERE (guest_email = @email AND status = 'PENDING')
		   OR (host_email  = @email AND status = 'REJECTED')
		ORDER BY created_at, id`

	invites, err := r.query(ctx, q, pgx.NamedArgs{"email": domain.NormalizeEmail(email)})
	if err != nil {
		return nil, fmt.Errorf("repo.InviteRepo.ListActionable: %w", err)
	}
	return invites, nil
}

func (r *pgInviteRepo) FindByTripAndGuest(ctx context.Context, tripID uuid.UUID, guestEmail string) (domain.Invite, error) {
	const q = `SELECT ` + inviteColumns + ` FROM invites WHERE trip_id = @trip_id AND guest_email = @guest_email`

	args := pgx.NamedArgs{"trip_id": tripID, "guest_email": domain.NormalizeEmail(guestEmail)}
	result, err := scanInvite(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Invite{}, fmt.Errorf("repo.InviteRepo.FindByTripAndGuest: %w", classifyPG(err, nil))
	}
	return result, nil
}

func (r *pgInviteRepo) Update(ctx context.Context, invite domain.Invite) (domain.Invite, error) {
	const q = `
		UPDATE invites
		SET status     = @status,
		    permission = @permission,
		    version    = version + 1,
		    updated_at = now()
		WHERE id = @id AND version = @version
		RETURNING ` + inviteColumns

	args := pgx.NamedArgs{
		"id":         invite.ID,
		"status":     string(invite.Status),
		"permission": string(invite.Permission),
		"version":    invite.Version,
	}

	result, err := scanInvite(r.db.QueryRow(ctx, q, args))
	if err == nil {
		return result, nil
	}
	err = classifyPG(err, nil)
	if errors.Is(err, domain.ErrNotFound) {
		err = missOrConflict(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM invites WHERE id = @id)`, invite.ID)
	}
	return domain.Invite{}, fmt.Errorf("repo.InviteRepo.Update: %w", err)
}

func (r *pgInviteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invites WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.InviteRepo.Delete: %w", classifyPG(err, nil))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.InviteRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgInviteRepo) query(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Invite, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if args == nil {
		rows, err = r.db.Query(ctx, q)
	} else {
		rows, err = r.db.Query(ctx, q, args)
	}
	if err != nil {
		return nil, classifyPG(err, nil)
	}
	defer rows.Close()

	var invites []domain.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", classifyPG(err, nil))
	}
	return invites, nil
}

func scanInvite(s scanner) (domain.Invite, error) {
	var (
		inv                domain.Invite
		id, tripID         pgtype.UUID
		permission, status string
	)
	err := s.Scan(&id, &tripID, &inv.TripName, &inv.HostEmail, &inv.HostName, &inv.GuestEmail,
		&permission, &status, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return domain.Invite{}, err
	}
	inv.ID = uuid.UUID(id.Bytes)
	inv.TripID = uuid.UUID(tripID.Bytes)
	inv.Permission = domain.Permission(permission)
	inv.Status = domain.InviteStatus(status)
	return inv, nil
}
