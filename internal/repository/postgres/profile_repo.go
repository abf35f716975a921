package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rigger-connect-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const profileColumns = `id, user_id, COALESCE(full_name, ''), COALESCE(position, ''), COALESCE(company, ''),
	COALESCE(bio, ''), COALESCE(phone, ''), COALESCE(location, ''), latitude, longitude,
	experience_years, availability_status, last_active_at, created_at, updated_at`

type profileRepo struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) domain.ProfileRepository {
	return &profileRepo{db: db}
}

// Search returns one page of profiles matching q and the total number of
// matches. The bounding box is a coarse prefilter; callers apply the exact
// radius.
func (r *profileRepo) Search(ctx context.Context, q domain.ProfileQuery) ([]domain.WorkerProfile, int64, error) {
	where, args := buildProfileWhere(q)

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM profiles WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	argIndex := len(args) + 1
	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE %s ORDER BY updated_at DESC, id LIMIT $%d OFFSET $%d`,
		profileColumns, where, argIndex, argIndex+1)
	args = append(args, limit, q.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]domain.WorkerProfile, 0, limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*domain.WorkerProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE id = $1`, profileColumns)
	p, err := scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanProfile(row pgx.Row) (domain.WorkerProfile, error) {
	var p domain.WorkerProfile
	err := row.Scan(
		&p.ID, &p.UserID, &p.FullName, &p.Position, &p.Company,
		&p.Bio, &p.Phone, &p.Location, &p.Latitude, &p.Longitude,
		&p.ExperienceYears, &p.AvailabilityStatus, &p.LastActiveAt, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// buildProfileWhere renders q as a WHERE clause with positional arguments.
func buildProfileWhere(q domain.ProfileQuery) (string, []interface{}) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argIndex := 1

	if q.Box != nil {
		box := q.Box.Clamped()
		conditions = append(conditions,
			"latitude IS NOT NULL",
			"longitude IS NOT NULL",
			fmt.Sprintf("latitude BETWEEN $%d AND $%d", argIndex, argIndex+1),
			fmt.Sprintf("longitude BETWEEN $%d AND $%d", argIndex+2, argIndex+3),
		)
		args = append(args, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
		argIndex += 4
	} else if q.HasLocation {
		conditions = append(conditions, "latitude IS NOT NULL", "longitude IS NOT NULL")
	}

	if term := strings.TrimSpace(q.SearchTerm); term != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(full_name ILIKE $%[1]d OR position ILIKE $%[1]d OR company ILIKE $%[1]d OR bio ILIKE $%[1]d OR location ILIKE $%[1]d)",
			argIndex))
		args = append(args, containsPattern(term))
		argIndex++
	}

	if q.MinExperience != nil {
		conditions = append(conditions, fmt.Sprintf("experience_years >= $%d", argIndex))
		args = append(args, *q.MinExperience)
		argIndex++
	}
	if q.MaxExperience != nil {
		conditions = append(conditions, fmt.Sprintf("experience_years < $%d", argIndex))
		args = append(args, *q.MaxExperience)
		argIndex++
	}

	if len(q.Companies) > 0 {
		lowered := make([]string, 0, len(q.Companies))
		for _, c := range q.Companies {
			if c = strings.TrimSpace(c); c != "" {
				lowered = append(lowered, strings.ToLower(c))
			}
		}
		if len(lowered) > 0 {
			conditions = append(conditions, fmt.Sprintf("lower(company) = ANY($%d)", argIndex))
			args = append(args, pq.Array(lowered))
			argIndex++
		}
	}

	// Profiles carry no skills column; a skill matches the position or bio.
	if len(q.Skills) > 0 {
		var skillConds []string
		for _, s := range q.Skills {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			skillConds = append(skillConds, fmt.Sprintf("position ILIKE $%[1]d OR bio ILIKE $%[1]d", argIndex))
			args = append(args, containsPattern(s))
			argIndex++
		}
		if len(skillConds) > 0 {
			conditions = append(conditions, "("+strings.Join(skillConds, " OR ")+")")
		}
	}

	if q.HasPhone {
		conditions = append(conditions, "COALESCE(phone, '') <> ''")
	}

	if q.ActiveSince != nil {
		conditions = append(conditions, fmt.Sprintf("last_active_at >= $%d", argIndex))
		args = append(args, *q.ActiveSince)
	}

	return strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
