package repository

import (
	"context"

	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles user data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, is_premium, total_score, tests_completed, created_at`

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsPremium, &u.TotalScore, &u.TestsCompleted, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail retrieves a user by email (lower-cased unique).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = LOWER($1)`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsPremium, &u.TotalScore, &u.TestsCompleted, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, is_premium)
		 VALUES ($1, LOWER($2), $3, $4)
		 RETURNING id, created_at`,
		u.Name, u.Email, u.PasswordHash, u.IsPremium,
	).Scan(&u.ID, &u.CreatedAt)
}

// SetPremium flips a user's premium flag.
func (r *UserRepository) SetPremium(ctx context.Context, id int, premium bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET is_premium = $1 WHERE id = $2`, premium, id)
	return err
}

// ApplyExamResult adds a completed exam's correct count to the user's
// cumulative stats. Called exactly once per session, at first completion.
func (r *UserRepository) ApplyExamResult(ctx context.Context, id, correctAnswers int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET total_score = total_score + $1,
		     tests_completed = tests_completed + 1
		 WHERE id = $2`,
		correctAnswers, id)
	return err
}
