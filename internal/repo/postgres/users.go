package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/specialsearch/specialsearch/internal/domain/resource"
	"github.com/specialsearch/specialsearch/internal/domain/user"
	"github.com/specialsearch/specialsearch/internal/observability"
	"github.com/specialsearch/specialsearch/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, username, password_hash, profile_pic_url,
	reset_code, reset_code_expires_at,
	loc_address, loc_city, loc_state, loc_lat, loc_lng,
	created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.ProfilePicURL,
		&u.ResetCode,
		&u.ResetCodeExpires,
		&u.Location.Address,
		&u.Location.City,
		&u.Location.State,
		&u.Location.Lat,
		&u.Location.Lng,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var err error

	op := "users.get_by_email"

	err = r.observe(op, func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			email,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var err error

	op := "users.get_by_id"

	err = r.observe(op, func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool

	err := r.observe("users.email_exists", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email,
		).Scan(&exists)
	})

	return exists, err
}

func (r *UsersRepo) Create(ctx context.Context, req user.CreateRequest) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:            uuid.NewString(),
		Email:         req.Email,
		Username:      req.Username,
		PasswordHash:  req.PasswordHash,
		ProfilePicURL: req.ProfilePicURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, username, password_hash, profile_pic_url, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			u.ID, u.Email, u.Username, u.PasswordHash, u.ProfilePicURL, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

// Update applies a partial profile update and returns the fresh record.
func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error) {
	if req.Empty() {
		return r.GetByID(ctx, id)
	}

	sets := []string{}
	args := []any{}
	n := 1

	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, n))
		args = append(args, val)
		n++
	}

	if req.Username != nil {
		add("username", *req.Username)
	}
	if req.Email != nil {
		add("email", *req.Email)
	}
	if req.PasswordHash != nil {
		add("password_hash", *req.PasswordHash)
	}
	if req.ProfilePicURL != nil {
		add("profile_pic_url", *req.ProfilePicURL)
	}
	if req.Location != nil {
		add("loc_address", req.Location.Address)
		add("loc_city", req.Location.City)
		add("loc_state", req.Location.State)
		add("loc_lat", req.Location.Lat)
		add("loc_lng", req.Location.Lng)
	}

	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "), n,
	)

	var u user.User
	var err error

	err = r.observe("users.update", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx, query, args...))
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

// SetResetCode stores a one-time code and its absolute expiry, superseding
// any earlier pending code.
func (r *UsersRepo) SetResetCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("users.set_reset_code", func() error {
		tag, err = r.pool.Exec(ctx, `
			UPDATE users
			SET reset_code = $2,
			    reset_code_expires_at = $3,
			    updated_at = NOW()
			WHERE email = $1
		`, email, code, expiresAt)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}

// ConsumeResetCode verifies the presented code under a row lock, then stores
// the new hash and clears the code in the same transaction. A failed attempt
// leaves the code in place for a retry; expiry is enforced here, not by a
// background sweep.
func (r *UsersRepo) ConsumeResetCode(ctx context.Context, email, code, newHash string) error {
	return r.observe("users.consume_reset_code", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		var stored *string
		var expires *time.Time

		err = tx.QueryRow(ctx, `
			SELECT reset_code, reset_code_expires_at
			FROM users
			WHERE email = $1
			FOR UPDATE
		`, email).Scan(&stored, &expires)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return user.ErrNotFound
			}
			return err
		}

		if stored == nil || !security.CompareResetCode(*stored, code) {
			return user.ErrInvalidResetCode
		}

		if expires == nil || time.Now().UTC().After(*expires) {
			return user.ErrResetCodeExpired
		}

		_, err = tx.Exec(ctx, `
			UPDATE users
			SET password_hash = $2,
			    reset_code = NULL,
			    reset_code_expires_at = NULL,
			    updated_at = NOW()
			WHERE email = $1
		`, email, newHash)

		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

// ToggleFavorite flips set membership in one statement. The delete and the
// conditional insert run atomically, so concurrent toggles from two devices
// cannot lose an update the way a read-modify-write of the whole list could.
func (r *UsersRepo) ToggleFavorite(ctx context.Context, userID, resourceID string) (bool, error) {
	exists, err := r.userExists(ctx, userID)

	if err != nil {
		return false, err
	}

	if !exists {
		return false, user.ErrNotFound
	}

	var isFav bool

	err = r.observe("users.toggle_favorite", func() error {
		return r.pool.QueryRow(ctx, `
			WITH removed AS (
				DELETE FROM user_favorites
				WHERE user_id = $1 AND resource_id = $2
				RETURNING 1
			), inserted AS (
				INSERT INTO user_favorites (user_id, resource_id)
				SELECT $1, $2
				WHERE NOT EXISTS (SELECT 1 FROM removed)
				ON CONFLICT DO NOTHING
				RETURNING 1
			)
			SELECT EXISTS(SELECT 1 FROM inserted)
		`, userID, resourceID).Scan(&isFav)
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			// the resource side of the pair does not exist
			return false, resource.ErrNotFound
		}

		return false, err
	}

	return isFav, nil
}

// ListFavorites returns resource ids in insertion order.
func (r *UsersRepo) ListFavorites(ctx context.Context, userID string) ([]string, error) {
	exists, err := r.userExists(ctx, userID)

	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, user.ErrNotFound
	}

	ids := []string{}

	err = r.observe("users.list_favorites", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT resource_id
			FROM user_favorites
			WHERE user_id = $1
			ORDER BY created_at ASC, resource_id ASC
		`, userID)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var id string

			if err := rows.Scan(&id); err != nil {
				return err
			}

			ids = append(ids, id)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *UsersRepo) userExists(ctx context.Context, id string) (bool, error) {
	var exists bool

	err := r.observe("users.exists", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id,
		).Scan(&exists)
	})

	return exists, err
}
