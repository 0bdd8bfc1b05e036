package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-reviews/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

// The review list is aggregated from the reviews table on every read.
const movieColumns = `
    m.id,
    m.tmdb_id,
    m.title,
    m.release_year,
    m.director,
    m.cast_members,
    m.genres,
    m.plot,
    m.poster,
    m.backdrop,
    m.average_rating,
    COALESCE((SELECT array_agg(r.id ORDER BY r.created_at, r.id) FROM reviews r WHERE r.movie_id = m.id), '{}'::text[]),
    m.created_at,
    m.updated_at
`

// MovieCreateParams bundles the fields required to create a movie.
type MovieCreateParams struct {
	TMDBID      *int64
	Title       string
	ReleaseYear int
	Director    string
	Cast        []string
	Genres      []string
	Plot        string
	Poster      string
	Backdrop    string
}

// MovieUpdateParams holds optional authored fields; nil leaves a column as is.
type MovieUpdateParams struct {
	Title       *string
	ReleaseYear *int
	Director    *string
	Cast        *[]string
	Genres      *[]string
	Plot        *string
	Poster      *string
	Backdrop    *string
}

// MovieSort selects the ordering of List.
type MovieSort string

const (
	SortTitle  MovieSort = "title"
	SortRating MovieSort = "rating"
	SortNewest MovieSort = "newest"
	SortOldest MovieSort = "oldest"
)

// MovieListFilters encapsulates search and pagination options.
type MovieListFilters struct {
	Query  *string
	Sort   MovieSort
	Offset int
	Limit  int
}

// Create inserts a new movie row and returns the stored entity.
func (r *MoviesRepository) Create(ctx context.Context, params MovieCreateParams) (domain.Movie, error) {
	query := fmt.Sprintf(`
        INSERT INTO movies AS m (id, tmdb_id, title, release_year, director, cast_members, genres, plot, poster, backdrop)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING %s
    `, movieColumns)

	row := r.pool.QueryRow(ctx, query, createArgs(params)...)
	movie, err := scanMovie(row)
	if err != nil {
		return domain.Movie{}, translate(err, "movie")
	}
	return movie, nil
}

// Import inserts a movie keyed by TMDb id. When another writer already
// imported the same id the existing row is returned and created is false.
func (r *MoviesRepository) Import(ctx context.Context, params MovieCreateParams) (domain.Movie, bool, error) {
	if params.TMDBID == nil {
		return domain.Movie{}, false, fmt.Errorf("import requires a tmdb id")
	}
	query := fmt.Sprintf(`
        INSERT INTO movies AS m (id, tmdb_id, title, release_year, director, cast_members, genres, plot, poster, backdrop)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (tmdb_id) DO NOTHING
        RETURNING %s
    `, movieColumns)

	movie, err := scanMovie(r.pool.QueryRow(ctx, query, createArgs(params)...))
	if err == nil {
		return movie, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Movie{}, false, translate(err, "movie")
	}
	existing, err := r.GetByTMDBID(ctx, *params.TMDBID)
	if err != nil {
		return domain.Movie{}, false, err
	}
	return existing, false, nil
}

func createArgs(params MovieCreateParams) []interface{} {
	return []interface{}{
		uuid.NewString(),
		params.TMDBID,
		params.Title,
		params.ReleaseYear,
		params.Director,
		nonNil(params.Cast),
		nonNil(params.Genres),
		params.Plot,
		params.Poster,
		params.Backdrop,
	}
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies m WHERE m.id = $1`, movieColumns)
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Movie{}, translate(err, "movie")
	}
	return movie, nil
}

// GetByTMDBID fetches a previously imported movie by its TMDb id.
func (r *MoviesRepository) GetByTMDBID(ctx context.Context, tmdbID int64) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies m WHERE m.tmdb_id = $1`, movieColumns)
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, tmdbID))
	if err != nil {
		return domain.Movie{}, translate(err, "movie")
	}
	return movie, nil
}

// Update applies a partial update of the authored fields.
func (r *MoviesRepository) Update(ctx context.Context, id string, params MovieUpdateParams) (domain.Movie, error) {
	query := fmt.Sprintf(`
        UPDATE movies AS m
        SET title = COALESCE($2::text, title),
            release_year = COALESCE($3::int, release_year),
            director = COALESCE($4::text, director),
            cast_members = COALESCE($5::text[], cast_members),
            genres = COALESCE($6::text[], genres),
            plot = COALESCE($7::text, plot),
            poster = COALESCE($8::text, poster),
            backdrop = COALESCE($9::text, backdrop),
            updated_at = now()
        WHERE m.id = $1
        RETURNING %s
    `, movieColumns)

	row := r.pool.QueryRow(ctx, query, id,
		params.Title, params.ReleaseYear, params.Director,
		derefSlice(params.Cast), derefSlice(params.Genres),
		params.Plot, params.Poster, params.Backdrop)
	movie, err := scanMovie(row)
	if err != nil {
		return domain.Movie{}, translate(err, "movie")
	}
	return movie, nil
}

// SetAverageRating stores the derived average rating of a movie.
func (r *MoviesRepository) SetAverageRating(ctx context.Context, id string, average float64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE movies SET average_rating = $2 WHERE id = $1`, id, average)
	if err != nil {
		return fmt.Errorf("set average rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "movie not found")
	}
	return nil
}

// Delete removes a movie. Dependent reviews must be deleted first.
func (r *MoviesRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		// A review landed after the caller cleared them.
		return domain.Errorf(domain.ErrConflict, "movie still has reviews")
	}
	if err != nil {
		return translate(err, "movie")
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "movie not found")
	}
	return nil
}

// ListIDs returns every movie id.
func (r *MoviesRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM movies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// List returns local movies that match the provided filters.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters) ([]domain.Movie, error) {
	limit := clampLimit(filters.Limit)
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		where = append(where, fmt.Sprintf("m.title ILIKE %s", arg("%"+escapeLike(strings.TrimSpace(*filters.Query))+"%")))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(movieColumns)
	queryBuilder.WriteString(" FROM movies m")
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY ")
	queryBuilder.WriteString(orderClause(filters.Sort))
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	return collectMovies(rows)
}

// ListByGenre returns movies having a genre tag that contains genre
// (case-insensitive), best rated first, along with the total match count.
func (r *MoviesRepository) ListByGenre(ctx context.Context, genre string, offset, limit int) ([]domain.Movie, int64, error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	pattern := "%" + escapeLike(strings.TrimSpace(genre)) + "%"
	const match = `EXISTS (SELECT 1 FROM unnest(m.genres) AS g(name) WHERE g.name ILIKE $1)`

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM movies m WHERE `+match, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movies by genre: %w", err)
	}

	query := fmt.Sprintf(`
        SELECT %s FROM movies m
        WHERE %s
        ORDER BY m.average_rating DESC, m.title ASC, m.id ASC
        LIMIT $2 OFFSET $3
    `, movieColumns, match)
	rows, err := r.pool.Query(ctx, query, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	movies, err := collectMovies(rows)
	if err != nil {
		return nil, 0, err
	}
	return movies, total, nil
}

func orderClause(sort MovieSort) string {
	switch sort {
	case SortRating:
		return "m.average_rating DESC, m.title ASC, m.id ASC"
	case SortNewest:
		return "m.release_year DESC, m.title ASC, m.id ASC"
	case SortOldest:
		return "m.release_year ASC, m.title ASC, m.id ASC"
	default:
		return "m.title ASC, m.id ASC"
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func collectMovies(rows pgx.Rows) ([]domain.Movie, error) {
	defer rows.Close()
	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var (
		movie     domain.Movie
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(
		&movie.ID,
		&movie.TMDBID,
		&movie.Title,
		&movie.ReleaseYear,
		&movie.Director,
		&movie.Cast,
		&movie.Genres,
		&movie.Plot,
		&movie.Poster,
		&movie.Backdrop,
		&movie.AverageRating,
		&movie.ReviewIDs,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}

	movie.CreatedAt = createdAt
	movie.UpdatedAt = updatedAt
	return movie, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func derefSlice(values *[]string) interface{} {
	if values == nil {
		return nil
	}
	return nonNil(*values)
}
