package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/user"
)

type userRow struct {
	ID           int          `db:"id"`
	Username     string       `db:"username"`
	Email        string       `db:"email"`
	FullName     string       `db:"full_name"`
	Role         string       `db:"role"`
	Photo        string       `db:"photo"`
	IsActive     bool         `db:"is_active"`
	PasswordHash []byte       `db:"password_hash"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
	LastLogin    sql.NullTime `db:"last_login"`
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		FullName:     r.FullName,
		Role:         r.Role,
		Photo:        r.Photo,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time
	}
	return usr
}

const userColumns = `id, username, email, full_name, role, photo, is_active, password_hash, created_at, updated_at, last_login`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sql.DB) user.Repository {
	return &userRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	exclIDs := make([]int, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, usr.ID)
	}

	query := `SELECT username, email FROM "user" WHERE (username = ? OR email = ?)`
	args := []interface{}{username, email}
	if len(exclIDs) > 0 {
		q, inArgs, err := sqlx.In(query+` AND id NOT IN (?)`, username, email, exclIDs)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		query, args = q, inArgs
	}

	var rows []userRow
	if err := repo.db.Select(&rows, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	query := repo.db.Rebind(`
		INSERT INTO "user" (username, email, full_name, role, photo, is_active, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := repo.db.QueryRow(
		query,
		usr.Username, usr.Email, usr.FullName, usr.Role, usr.Photo, usr.IsActive,
		usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) getUser(where string, args ...interface{}) (user.User, error) {
	var row userRow
	query := repo.db.Rebind(fmt.Sprintf(`SELECT %s FROM "user" WHERE %s`, userColumns, where))
	if err := repo.db.Get(&row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(id int) (user.User, error) {
	return repo.getUser("id = ?", id)
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	return repo.getUser("username = ?", username)
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	return repo.getUser("username = ? OR email = ?", username, username)
}

func (repo *userRepository) SearchUsers(query string) ([]user.User, error) {
	var rows []userRow
	q := repo.db.Rebind(fmt.Sprintf(
		`SELECT %s FROM "user" WHERE username ILIKE ? OR full_name ILIKE ? ORDER BY username`, userColumns))
	pattern := "%" + query + "%"
	if err := repo.db.Select(&rows, q, pattern, pattern); err != nil {
		return nil, errors.Wrap(err, "searching users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{usr.UpdatedAt}

	addSet := func(col string, val interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	if usr.Username != "" {
		addSet("username", usr.Username)
	}
	if usr.Email != "" {
		addSet("email", usr.Email)
	}
	if usr.FullName != "" {
		addSet("full_name", usr.FullName)
	}
	if usr.Role != "" {
		addSet("role", usr.Role)
	}
	if usr.Photo != "" {
		addSet("photo", usr.Photo)
	}
	if usr.PasswordHash != nil {
		addSet("password_hash", usr.PasswordHash)
	}
	if isActive != nil {
		addSet("is_active", *isActive)
	}
	args = append(args, usr.ID)

	query := repo.db.Rebind(fmt.Sprintf(`UPDATE "user" SET %s WHERE id = ?`, strings.Join(sets, ", ")))
	res, err := repo.db.Exec(query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(usr.ID)
}

func (repo *userRepository) SetLastLogin(usr user.User, t time.Time) (user.User, error) {
	query := repo.db.Rebind(`UPDATE "user" SET last_login = ? WHERE id = ?`)
	if _, err := repo.db.Exec(query, t, usr.ID); err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	usr.LastLogin = t
	return usr, nil
}

// Statuses

type statusRow struct {
	ID        int       `db:"id"`
	UserID    int       `db:"user_id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

func (r statusRow) toStatus() user.Status {
	return user.Status{ID: r.ID, UserID: r.UserID, Text: r.Text, CreatedAt: r.CreatedAt}
}

func (repo *userRepository) CreateStatus(status user.Status) (user.Status, error) {
	query := repo.db.Rebind(`INSERT INTO status (user_id, text, created_at) VALUES (?, ?, ?) RETURNING id`)
	err := repo.db.QueryRow(query, status.UserID, status.Text, status.CreatedAt).Scan(&status.ID)
	if err != nil {
		return user.Status{}, errors.Wrap(err, "creating status")
	}
	return status, nil
}

func (repo *userRepository) GetStatusByID(id int) (user.Status, error) {
	var row statusRow
	query := repo.db.Rebind(`SELECT id, user_id, text, created_at FROM status WHERE id = ?`)
	if err := repo.db.Get(&row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return user.Status{}, user.ErrStatusNotFound
		}
		return user.Status{}, errors.Wrap(err, "getting status")
	}
	return row.toStatus(), nil
}

func (repo *userRepository) QueryUserStatuses(userID int) ([]user.Status, error) {
	var rows []statusRow
	query := repo.db.Rebind(`SELECT id, user_id, text, created_at FROM status WHERE user_id = ? ORDER BY created_at DESC`)
	if err := repo.db.Select(&rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "querying statuses")
	}
	statuses := make([]user.Status, 0, len(rows))
	for _, row := range rows {
		statuses = append(statuses, row.toStatus())
	}
	return statuses, nil
}

func (repo *userRepository) DeleteStatus(id int) error {
	query := repo.db.Rebind(`DELETE FROM status WHERE id = ?`)
	if _, err := repo.db.Exec(query, id); err != nil {
		return errors.Wrap(err, "deleting status")
	}
	return nil
}
