package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"moviebooking/internal/movies"
)

type movieRepository struct {
	db *DB
}

func NewMovieRepository(db *DB) movies.Repository {
	return &movieRepository{db: db}
}

func copyMovie(m *movies.Movie) *movies.Movie {
	cp := *m
	cp.ShowTimes = append([]movies.ShowTime(nil), m.ShowTimes...)
	return &cp
}

func (r *movieRepository) Create(ctx context.Context, movie *movies.Movie) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := movie.Key()
	if _, exists := r.db.movies[key]; exists {
		return movies.ErrMovieAlreadyExists
	}
	now := time.Now()
	if movie.CreatedAt.IsZero() {
		movie.CreatedAt = now
	}
	movie.UpdatedAt = now
	r.db.movies[key] = copyMovie(movie)
	return nil
}

func (r *movieRepository) GetByPair(ctx context.Context, key movies.Pair) (*movies.Movie, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	movie, ok := r.db.movies[key]
	if !ok {
		return nil, movies.ErrMovieNotFound
	}
	return copyMovie(movie), nil
}

func (r *movieRepository) filter(keep func(*movies.Movie) bool) []movies.Movie {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	result := make([]movies.Movie, 0)
	for _, movie := range r.db.movies {
		if keep(movie) {
			result = append(result, *copyMovie(movie))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].MovieName != result[j].MovieName {
			return result[i].MovieName < result[j].MovieName
		}
		return result[i].TheatreName < result[j].TheatreName
	})
	return result
}

func (r *movieRepository) List(ctx context.Context) ([]movies.Movie, error) {
	return r.filter(func(*movies.Movie) bool { return true }), nil
}

func (r *movieRepository) ListPairs(ctx context.Context) ([]movies.Pair, error) {
	all := r.filter(func(*movies.Movie) bool { return true })
	pairs := make([]movies.Pair, 0, len(all))
	for i := range all {
		pairs = append(pairs, all[i].Key())
	}
	return pairs, nil
}

func (r *movieRepository) SearchByName(ctx context.Context, name string) ([]movies.Movie, error) {
	needle := strings.ToLower(name)
	return r.filter(func(m *movies.Movie) bool {
		return strings.Contains(strings.ToLower(m.MovieName), needle)
	}), nil
}

func (r *movieRepository) ListAvailable(ctx context.Context) ([]movies.Movie, error) {
	return r.filter(func(m *movies.Movie) bool { return m.IsBookable() }), nil
}

func (r *movieRepository) Search(ctx context.Context, keyword string) ([]movies.Movie, error) {
	needle := strings.ToLower(keyword)
	return r.filter(func(m *movies.Movie) bool {
		for _, field := range []string{m.MovieName, m.Genre, m.Language, m.Description} {
			if strings.Contains(strings.ToLower(field), needle) {
				return true
			}
		}
		return false
	}), nil
}

func (r *movieRepository) DecrementAvailable(ctx context.Context, key movies.Pair, n int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	movie, ok := r.db.movies[key]
	if !ok || movie.AvailableTickets < n {
		return movies.ErrInsufficientTickets
	}
	movie.AvailableTickets -= n
	movie.Status = movies.StatusFor(movie.AvailableTickets)
	movie.UpdatedAt = time.Now()
	return nil
}

func (r *movieRepository) SetAvailable(ctx context.Context, key movies.Pair, available int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	movie, ok := r.db.movies[key]
	if !ok {
		return movies.ErrMovieNotFound
	}
	movie.AvailableTickets = available
	movie.Status = movies.StatusFor(available)
	movie.UpdatedAt = time.Now()
	return nil
}

func (r *movieRepository) SetStatus(ctx context.Context, key movies.Pair, status movies.Status) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	movie, ok := r.db.movies[key]
	if !ok {
		return movies.ErrMovieNotFound
	}
	movie.Status = status
	movie.UpdatedAt = time.Now()
	return nil
}

func (r *movieRepository) Delete(ctx context.Context, key movies.Pair) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.movies[key]; !ok {
		return movies.ErrMovieNotFound
	}
	delete(r.db.movies, key)
	return nil
}
