package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/reactiontech/websa-api/internal/domain/entity"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRow struct {
	ID        int64          `db:"user_id"`
	Name      string         `db:"name"`
	Username  string         `db:"username"`
	Email     string         `db:"email"`
	Password  string         `db:"password"`
	Age       sql.NullInt64  `db:"age"`
	State     sql.NullString `db:"state"`
	Sports    sql.NullString `db:"sports"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r userRow) toEntity() *entity.User {
	u := &entity.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.Password,
		State:        r.State.String,
		CreatedAt:    r.CreatedAt,
	}
	if r.Age.Valid {
		age := int(r.Age.Int64)
		u.Age = &age
	}
	if r.Sports.Valid {
		u.Sports = entity.SplitSports(r.Sports.String)
	}
	return u
}

const userColumns = `user_id, name, username, email, password, age, state, sports, created_at`

func (r *UserRepository) Create(ctx context.Context, u *entity.User) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, username, email, password) VALUES (?, ?, ?, ?)`,
		u.Name, u.Username, u.Email, u.PasswordHash)
	if err != nil {
		return 0, mapErr("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, mapErr("insert user", err)
	}
	return id, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, id); err != nil {
		return nil, mapErr("find user by id", err)
	}
	return row.toEntity(), nil
}

func (r *UserRepository) FindByLogin(ctx context.Context, usernameOrEmail string) (*entity.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? LIMIT 1`,
		usernameOrEmail, usernameOrEmail)
	if err != nil {
		return nil, mapErr("find user by login", err)
	}
	return row.toEntity(), nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, age int, state string, sports []string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET age = ?, state = ?, sports = ? WHERE user_id = ?`,
		age, state, entity.JoinSports(sports), id)
	if err != nil {
		return mapErr("update profile", err)
	}
	return requireAffected("update profile", res)
}
