package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/roamio/tour-booking/internal/model"
	"github.com/roamio/tour-booking/internal/query"
)

// TourColumns lists every selectable column of the tours table, in schema
// order. Filter, sort and projection requests all resolve against it.
var TourColumns = []string{
	"id", "name", "slug", "duration_days", "max_group_size", "difficulty",
	"ratings_average", "ratings_quantity", "price_cents", "summary",
	"description", "image_cover", "created_at",
}

const tourSelect = `SELECT id,name,slug,duration_days,max_group_size,difficulty,
	ratings_average,ratings_quantity,price_cents,summary,description,image_cover,
	created_at FROM tours`

type TourRepo struct{ DB *sql.DB }

func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{DB: db} }

// List executes a translated collection query. The returned maps carry only
// the projected columns so the handler can serialize them as-is.
func (r *TourRepo) List(ctx context.Context, d query.Descriptor) ([]map[string]any, error) {
	cols, err := d.Columns(TourColumns, nil)
	if err != nil {
		return nil, err
	}
	where, args, err := d.Where(TourColumns)
	if err != nil {
		return nil, err
	}
	order, err := d.Order(TourColumns)
	if err != nil {
		return nil, err
	}

	stmt := "SELECT " + strings.Join(cols, ",") + " FROM tours WHERE " + where +
		" ORDER BY " + order + " LIMIT ? OFFSET ?"
	args = append(args, d.Limit, d.Offset())

	rows, err := r.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]map[string]any, 0, d.Limit)
	for rows.Next() {
		var t model.Tour
		ptrs := make([]any, len(cols))
		for i, c := range cols {
			ptrs[i] = tourField(&t, c)
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			m[c] = deref(ptrs[i])
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetBySlug fetches a tour by its URL slug; the browsing client addresses
// tours by slug rather than id.
func (r *TourRepo) GetBySlug(ctx context.Context, slug string) (model.Tour, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx, tourSelect+" WHERE slug=? LIMIT 1", slug))
}

// GetByID fetches a tour by id.
func (r *TourRepo) GetByID(ctx context.Context, id uint64) (model.Tour, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx, tourSelect+" WHERE id=? LIMIT 1", id))
}

// Create inserts a tour and returns its ID. The slug derives from the name.
func (r *TourRepo) Create(ctx context.Context, t model.Tour) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO tours (name,slug,duration_days,max_group_size,difficulty,
			price_cents,summary,description,image_cover) VALUES (?,?,?,?,?,?,?,?,?)`,
		t.Name, Slugify(t.Name), t.DurationDays, t.MaxGroupSize, t.Difficulty,
		t.PriceCents, t.Summary, t.Description, t.ImageCover)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrNameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update rewrites the mutable fields of a tour. Returns sql.ErrNoRows when
// the id does not exist so handlers can respond 404.
func (r *TourRepo) Update(ctx context.Context, t model.Tour) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tours SET name=?, slug=?, duration_days=?, max_group_size=?,
			difficulty=?, price_cents=?, summary=?, description=?, image_cover=? WHERE id=?`,
		t.Name, Slugify(t.Name), t.DurationDays, t.MaxGroupSize, t.Difficulty,
		t.PriceCents, t.Summary, t.Description, t.ImageCover, t.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a tour. Returns sql.ErrNoRows when nothing was deleted.
func (r *TourRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tours WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListBookedByUser returns the tours a user has booked, joined through the
// bookings table.
func (r *TourRepo) ListBookedByUser(ctx context.Context, userID uint64) ([]model.Tour, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT t.id,t.name,t.slug,t.duration_days,t.max_group_size,t.difficulty,
			t.ratings_average,t.ratings_quantity,t.price_cents,t.summary,t.description,
			t.image_cover,t.created_at
		FROM tours t JOIN bookings b ON b.tour_id = t.id
		WHERE b.user_id = ? ORDER BY b.created_at DESC, t.id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Tour
	for rows.Next() {
		var t model.Tour
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.DurationDays, &t.MaxGroupSize,
			&t.Difficulty, &t.RatingsAverage, &t.RatingsQuantity, &t.PriceCents,
			&t.Summary, &t.Description, &t.ImageCover, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TourStats is one per-difficulty aggregate over the well-rated part of the
// catalogue.
type TourStats struct {
	Difficulty    string
	TourCount     uint32
	RatingCount   uint64
	AvgRating     float64
	AvgPriceCents float64
	MinPriceCents uint64
	MaxPriceCents uint64
}

// Stats aggregates tours with a ratings average of at least 4.5 per
// difficulty, cheapest group first.
func (r *TourRepo) Stats(ctx context.Context) ([]TourStats, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT UPPER(difficulty), COUNT(*), COALESCE(SUM(ratings_quantity),0),
			AVG(ratings_average), AVG(price_cents), MIN(price_cents), MAX(price_cents)
		FROM tours WHERE ratings_average >= 4.5
		GROUP BY difficulty ORDER BY AVG(price_cents) ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TourStats
	for rows.Next() {
		var s TourStats
		if err := rows.Scan(&s.Difficulty, &s.TourCount, &s.RatingCount,
			&s.AvgRating, &s.AvgPriceCents, &s.MinPriceCents, &s.MaxPriceCents); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MonthlyPlanEntry is one calendar month of a year's departure schedule.
type MonthlyPlanEntry struct {
	Month      uint8
	TourStarts uint32
	Tours      []string
}

// MonthlyPlan groups a year's departures from tour_starts by month, busiest
// month first. Tour names are concatenated in SQL on a newline, a character
// the tours.name column cannot contain.
func (r *TourRepo) MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlanEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT MONTH(s.starts_on), COUNT(*),
			GROUP_CONCAT(t.name ORDER BY t.name SEPARATOR '\n')
		FROM tour_starts s JOIN tours t ON t.id = s.tour_id
		WHERE YEAR(s.starts_on) = ?
		GROUP BY MONTH(s.starts_on)
		ORDER BY COUNT(*) DESC, MONTH(s.starts_on) ASC`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MonthlyPlanEntry
	for rows.Next() {
		var e MonthlyPlanEntry
		var names string
		if err := rows.Scan(&e.Month, &e.TourStarts, &names); err != nil {
			return nil, err
		}
		if names != "" {
			e.Tours = strings.Split(names, "\n")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *TourRepo) scanOne(row *sql.Row) (model.Tour, error) {
	var t model.Tour
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.DurationDays, &t.MaxGroupSize,
		&t.Difficulty, &t.RatingsAverage, &t.RatingsQuantity, &t.PriceCents,
		&t.Summary, &t.Description, &t.ImageCover, &t.CreatedAt)
	return t, err
}

// Slugify lowercases a name and collapses runs of non-alphanumerics into
// single hyphens: "The Forest Hiker" -> "the-forest-hiker".
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// tourField returns the scan destination inside t for a column name. The
// switch is exhaustive over TourColumns.
func tourField(t *model.Tour, col string) any {
	switch col {
	case "id":
		return &t.ID
	case "name":
		return &t.Name
	case "slug":
		return &t.Slug
	case "duration_days":
		return &t.DurationDays
	case "max_group_size":
		return &t.MaxGroupSize
	case "difficulty":
		return &t.Difficulty
	case "ratings_average":
		return &t.RatingsAverage
	case "ratings_quantity":
		return &t.RatingsQuantity
	case "price_cents":
		return &t.PriceCents
	case "summary":
		return &t.Summary
	case "description":
		return &t.Description
	case "image_cover":
		return &t.ImageCover
	case "created_at":
		return &t.CreatedAt
	}
	return new(any)
}

// deref unwraps the typed pointers handed to Scan so projected rows can be
// serialized directly.
func deref(p any) any {
	switch v := p.(type) {
	case *uint64:
		return *v
	case *uint32:
		return *v
	case *uint8:
		return *v
	case *float64:
		return *v
	case *string:
		return *v
	case *bool:
		return *v
	case *time.Time:
		return *v
	case *sql.NullString:
		if v.Valid {
			return v.String
		}
		return nil
	case *sql.NullTime:
		if v.Valid {
			return v.Time
		}
		return nil
	default:
		return v
	}
}
