package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gatherhub/server/internal/api/pagination"
	"github.com/gatherhub/server/internal/domain/events"
)

var _ events.Repository = (*EventRepository)(nil)

// eventFilterClause is shared between the count and page queries.
//   $1 location exact match ('' disables)
//   $2 category name exact match ('' disables)
//   $3 raw search term ('' disables)
//   $4 escaped prefix pattern for name
//   $5 escaped substring pattern for description and location
const eventFilterClause = `
   ($1 = '' OR e.location = $1)
   AND ($2 = '' OR EXISTS (
         SELECT 1
           FROM event_categories ec2
           JOIN categories c2 ON c2.id = ec2.category_id
          WHERE ec2.event_id = e.id AND c2.name = $2))
   AND ($3 = '' OR e.name ILIKE $4 OR e.description ILIKE $5 OR e.location ILIKE $5)`

const eventSelect = `
SELECT e.id, e.ulid, e.name, e.date, e.location, e.description, e.image_url,
       e.organizer_id, u.email,
       COALESCE(array_agg(c.id ORDER BY c.id) FILTER (WHERE c.id IS NOT NULL), '{}'),
       COALESCE(array_agg(c.name ORDER BY c.id) FILTER (WHERE c.id IS NOT NULL), '{}'),
       e.created_at, e.updated_at
  FROM events e
  JOIN users u ON u.id = e.organizer_id
  LEFT JOIN event_categories ec ON ec.event_id = e.id
  LEFT JOIN categories c ON c.id = ec.category_id`

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *EventRepository) List(ctx context.Context, filters events.Filters, page pagination.Page) (events.ListResult, error) {
	q := r.queryer()

	escaped := escapeILIKEPattern(filters.Search)
	prefixPattern := escaped + "%"
	substringPattern := "%" + escaped + "%"

	var count int
	err := q.QueryRow(ctx, `
SELECT count(*)
  FROM events e
 WHERE`+eventFilterClause,
		filters.Location, filters.CategoryName, filters.Search, prefixPattern, substringPattern,
	).Scan(&count)
	if err != nil {
		return events.ListResult{}, fmt.Errorf("count events: %w", err)
	}

	rows, err := q.Query(ctx, eventSelect+`
 WHERE`+eventFilterClause+`
 GROUP BY e.id, u.email
 ORDER BY e.date ASC, e.ulid ASC
 LIMIT $6 OFFSET $7`,
		filters.Location, filters.CategoryName, filters.Search, prefixPattern, substringPattern,
		page.Size, page.Offset(),
	)
	if err != nil {
		return events.ListResult{}, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]events.Event, 0, page.Size)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return events.ListResult{}, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, *event)
	}
	if err := rows.Err(); err != nil {
		return events.ListResult{}, fmt.Errorf("list events: %w", err)
	}

	return events.ListResult{Events: items, TotalCount: count}, nil
}

func (r *EventRepository) GetByULID(ctx context.Context, eventULID string) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, eventSelect+`
 WHERE e.ulid = $1
 GROUP BY e.id, u.email`, eventULID)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Create(ctx context.Context, params events.CreateEventParams) (*events.Event, error) {
	repo := &Repository{pool: r.pool, tx: r.tx}
	err := repo.WithTx(ctx, func(ctx context.Context, tx *Repository) error {
		q := tx.tx
		var eventID string
		err := q.QueryRow(ctx, `
INSERT INTO events (ulid, organizer_id, name, date, location, description, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`,
			params.ULID,
			params.OrganizerID,
			params.Name,
			params.Date,
			params.Location,
			params.Description,
			params.ImageURL,
		).Scan(&eventID)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return replaceEventCategories(ctx, q, eventID, params.CategoryIDs)
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, events.ErrUnknownCategory
		}
		return nil, err
	}
	return r.GetByULID(ctx, params.ULID)
}

func (r *EventRepository) Update(ctx context.Context, id string, params events.UpdateEventParams) (*events.Event, error) {
	var eventULID string
	repo := &Repository{pool: r.pool, tx: r.tx}
	err := repo.WithTx(ctx, func(ctx context.Context, tx *Repository) error {
		q := tx.tx
		err := q.QueryRow(ctx, `
UPDATE events
   SET name = COALESCE($2, name),
       date = COALESCE($3, date),
       location = COALESCE($4, location),
       description = COALESCE($5, description),
       image_url = COALESCE($6, image_url),
       updated_at = now()
 WHERE id = $1
RETURNING ulid`,
			id,
			params.Name,
			params.Date,
			params.Location,
			params.Description,
			params.ImageURL,
		).Scan(&eventULID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return events.ErrNotFound
			}
			return fmt.Errorf("update event: %w", err)
		}

		if params.CategoryIDs == nil {
			return nil
		}
		if _, err := q.Exec(ctx, `DELETE FROM event_categories WHERE event_id = $1`, id); err != nil {
			return fmt.Errorf("clear event categories: %w", err)
		}
		return replaceEventCategories(ctx, q, id, *params.CategoryIDs)
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, events.ErrUnknownCategory
		}
		return nil, err
	}
	return r.GetByULID(ctx, eventULID)
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	// Join rows cascade with the event.
	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventRepository) ListCategories(ctx context.Context) ([]events.Category, error) {
	rows, err := r.queryer().Query(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]events.Category, 0)
	for rows.Next() {
		var category events.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *EventRepository) CreateCategory(ctx context.Context, name string) (*events.Category, error) {
	var category events.Category
	err := r.queryer().QueryRow(ctx, `
INSERT INTO categories (name) VALUES ($1) RETURNING id, name`, name).
		Scan(&category.ID, &category.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, events.ErrCategoryTaken
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &category, nil
}

func replaceEventCategories(ctx context.Context, q queryer, eventID string, categoryIDs []int32) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
INSERT INTO event_categories (event_id, category_id)
SELECT $1, unnest($2::int4[])
ON CONFLICT DO NOTHING`, eventID, categoryIDs)
	if err != nil {
		return fmt.Errorf("set event categories: %w", err)
	}
	return nil
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var event events.Event
	err := row.Scan(
		&event.ID,
		&event.ULID,
		&event.Name,
		&event.Date,
		&event.Location,
		&event.Description,
		&event.ImageURL,
		&event.OrganizerID,
		&event.OrganizerEmail,
		&event.CategoryIDs,
		&event.CategoryNames,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
