package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/specialsearch/specialsearch/internal/domain/resource"
	"github.com/specialsearch/specialsearch/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const resourceColumns = `id, name, type, contact, languages, website, notes, image,
	loc_address, loc_city, loc_state, loc_lat, loc_lng,
	created_at, updated_at`

type ResourcesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewResourcesRepo(pool *pgxpool.Pool, prom *observability.Prom) *ResourcesRepo {
	return &ResourcesRepo{pool: pool, prom: prom}
}

func (r *ResourcesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanResource(row pgx.Row) (resource.Resource, error) {
	var res resource.Resource

	err := row.Scan(
		&res.ID,
		&res.Name,
		&res.Type,
		&res.Contact,
		&res.Languages,
		&res.Website,
		&res.Notes,
		&res.Image,
		&res.Location.Address,
		&res.Location.City,
		&res.Location.State,
		&res.Location.Lat,
		&res.Location.Lng,
		&res.CreatedAt,
		&res.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return resource.Resource{}, resource.ErrNotFound
		}

		return resource.Resource{}, err
	}

	return res, nil
}

func (r *ResourcesRepo) Create(ctx context.Context, req resource.CreateRequest) (resource.Resource, error) {
	now := time.Now().UTC()

	res := resource.Resource{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Type:      req.Type,
		Location:  req.Location,
		Contact:   req.Contact,
		Languages: req.Languages,
		Website:   req.Website,
		Notes:     req.Notes,
		Image:     req.Image,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.observe("resources.create", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO resources (`+resourceColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		`, res.ID, res.Name, res.Type, res.Contact, res.Languages, res.Website, res.Notes, res.Image,
			res.Location.Address, res.Location.City, res.Location.State, res.Location.Lat, res.Location.Lng,
			res.CreatedAt, res.UpdatedAt)

		return err
	})

	if err != nil {
		return resource.Resource{}, err
	}

	return res, nil
}

func (r *ResourcesRepo) GetByID(ctx context.Context, id string) (resource.Resource, error) {
	var res resource.Resource
	var err error

	err = r.observe("resources.get_by_id", func() error {
		res, err = scanResource(r.pool.QueryRow(ctx,
			`SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id,
		))
		return err
	})

	return res, err
}

// List returns resources matching the filter, newest first. Empty filter
// fields match everything.
func (r *ResourcesRepo) List(ctx context.Context, filter resource.ListFilter) ([]resource.Resource, error) {
	conds := []string{}
	args := []any{}
	n := 1

	if filter.Type != "" {
		conds = append(conds, fmt.Sprintf("LOWER(type) = LOWER($%d)", n))
		args = append(args, filter.Type)
		n++
	}

	if filter.City != "" {
		conds = append(conds, fmt.Sprintf("LOWER(loc_city) = LOWER($%d)", n))
		args = append(args, filter.City)
		n++
	}

	query := `SELECT ` + resourceColumns + ` FROM resources`

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"

	out := []resource.Resource{}

	err := r.observe("resources.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			res, err := scanResource(rows)

			if err != nil {
				return err
			}

			out = append(out, res)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *ResourcesRepo) Update(ctx context.Context, id string, req resource.UpdateRequest) (resource.Resource, error) {
	sets := []string{}
	args := []any{}
	n := 1

	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, n))
		args = append(args, val)
		n++
	}

	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.Type != nil {
		add("type", *req.Type)
	}
	if req.Contact != nil {
		add("contact", *req.Contact)
	}
	if req.Languages != nil {
		add("languages", *req.Languages)
	}
	if req.Website != nil {
		add("website", *req.Website)
	}
	if req.Notes != nil {
		add("notes", *req.Notes)
	}
	if req.Image != nil {
		add("image", *req.Image)
	}
	if req.Location != nil {
		add("loc_address", req.Location.Address)
		add("loc_city", req.Location.City)
		add("loc_state", req.Location.State)
		add("loc_lat", req.Location.Lat)
		add("loc_lng", req.Location.Lng)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE resources SET %s WHERE id = $%d RETURNING `+resourceColumns,
		strings.Join(sets, ", "), n,
	)

	var res resource.Resource
	var err error

	err = r.observe("resources.update", func() error {
		res, err = scanResource(r.pool.QueryRow(ctx, query, args...))
		return err
	})

	return res, err
}

func (r *ResourcesRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.observe("resources.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)

		if err != nil {
			return err
		}

		affected = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return err
	}

	if affected == 0 {
		return resource.ErrNotFound
	}

	return nil
}
