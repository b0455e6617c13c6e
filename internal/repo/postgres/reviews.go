package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialsearch/specialsearch/internal/domain/review"
	"github.com/specialsearch/specialsearch/internal/observability"
	"github.com/specialsearch/specialsearch/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reviewJoinColumns = `r.id, r.user_id, r.resource_id, r.rating, r.review, r.created_at,
	u.username, u.profile_pic_url`

type ReviewsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewReviewsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ReviewsRepo {
	return &ReviewsRepo{pool: pool, prom: prom}
}

func (r *ReviewsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanJoinedReview(rows pgx.Rows) (review.Review, error) {
	var rv review.Review

	err := rows.Scan(
		&rv.ID, &rv.UserID, &rv.ResourceID, &rv.Rating, &rv.Review, &rv.CreatedAt,
		&rv.Username, &rv.ProfilePicURL,
	)

	return rv, err
}

func (r *ReviewsRepo) Create(ctx context.Context, req review.CreateRequest) (review.Review, error) {
	rv := review.Review{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		ResourceID: req.ResourceID,
		Rating:     req.Rating,
		Review:     req.Review,
		CreatedAt:  time.Now().UTC(),
	}

	err := r.observe("reviews.create", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO reviews (id, user_id, resource_id, rating, review, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, rv.ID, rv.UserID, rv.ResourceID, rv.Rating, rv.Review, rv.CreatedAt)

		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError

		// 23503 fires when either foreign key is dangling
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return review.Review{}, review.ErrNotFound
		}

		return review.Review{}, err
	}

	return rv, nil
}

// ListAll returns every review newest-first, with author fields joined in.
func (r *ReviewsRepo) ListAll(ctx context.Context) ([]review.Review, error) {
	out := []review.Review{}

	err := r.observe("reviews.list_all", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT `+reviewJoinColumns+`
			FROM reviews r
			JOIN users u ON u.id = r.user_id
			ORDER BY r.created_at DESC, r.id DESC
		`)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			rv, err := scanJoinedReview(rows)

			if err != nil {
				return err
			}

			out = append(out, rv)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// ListByResource pages a resource's reviews newest-first with a keyset
// cursor. limit+1 rows are fetched to detect whether more remain.
func (r *ReviewsRepo) ListByResource(
	ctx context.Context,
	resourceID string,
	limit int,
	after *utils.ReviewCursor,
) (items []review.Review, nextCursor *string, hasMore bool, err error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + reviewJoinColumns + `
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.resource_id = $1
	`
	args := []any{resourceID}

	if after != nil {
		query += ` AND (r.created_at, r.id) < ($2, $3)`
		args = append(args, after.CreatedAt, after.ID)
	}

	query += fmt.Sprintf(` ORDER BY r.created_at DESC, r.id DESC LIMIT $%d`, len(args)+1)

	args = append(args, limit+1)

	out := make([]review.Review, 0, limit)

	err = r.observe("reviews.list_by_resource", func() error {
		rows, qerr := r.pool.Query(ctx, query, args...)

		if qerr != nil {
			return qerr
		}

		defer rows.Close()

		for rows.Next() {
			rv, serr := scanJoinedReview(rows)

			if serr != nil {
				return serr
			}

			out = append(out, rv)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, nil, false, err
	}

	if len(out) > limit {
		hasMore = true
		out = out[:limit]
		last := out[len(out)-1]

		cur, encErr := utils.EncodeReviewCursor(last.CreatedAt, last.ID)
		if encErr != nil {
			return nil, nil, false, encErr
		}
		nextCursor = &cur
	}

	return out, nextCursor, hasMore, nil
}
