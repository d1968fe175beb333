package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reactiontech/websa-api/internal/domain/entity"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `user_id, name, username, email, password, age, state, sports, created_at`

func (r *UserRepository) Create(ctx context.Context, u *entity.User) (int64, error) {
	query := `
		INSERT INTO users (name, username, email, password)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id`

	var id int64
	if err := r.pool.QueryRow(ctx, query, u.Name, u.Username, u.Email, u.PasswordHash).Scan(&id); err != nil {
		return 0, mapErr("insert user", err)
	}
	return id, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr("find user by id", err)
	}
	return u, nil
}

func (r *UserRepository) FindByLogin(ctx context.Context, usernameOrEmail string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1 LIMIT 1`, usernameOrEmail)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr("find user by login", err)
	}
	return u, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, age int, state string, sports []string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET age = $1, state = $2, sports = $3 WHERE user_id = $4`,
		age, state, entity.JoinSports(sports), id)
	if err != nil {
		return mapErr("update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr("update profile", pgx.ErrNoRows)
	}
	return nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var state, sports *string
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.Age, &state, &sports, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if state != nil {
		u.State = *state
	}
	if sports != nil {
		u.Sports = entity.SplitSports(*sports)
	}
	return u, nil
}
