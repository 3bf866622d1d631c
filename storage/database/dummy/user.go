package dummydb

import (
	"sort"
	"strings"
	"time"

	"github.com/trezcool/darasa/core/user"
)

var userPKCount int

type userRepository struct {
	db       *userTable
	statuses *statusTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user, statuses: db.status}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	exclUsrsLen := len(excludedUsers)
	if exclUsrsLen > 1 {
		sort.Slice(excludedUsers, func(i, j int) bool { return excludedUsers[i].ID < excludedUsers[j].ID })
	}

	for _, usr := range repo.query() {
		if username != "" && usr.Username == username && !isExcluded(usr, excludedUsers, exclUsrsLen) {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email && !isExcluded(usr, excludedUsers, exclUsrsLen) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	userPKCount++
	usr.ID = userPKCount
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(id int) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if usr.Username == username {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if (usr.Username == username) || (usr.Email == username) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) SearchUsers(query string) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	kw := strings.ToLower(query)
	var matched []user.User
	for _, usr := range repo.query() {
		if strings.Contains(strings.ToLower(usr.Username), kw) ||
			strings.Contains(strings.ToLower(usr.FullName), kw) {
			matched = append(matched, usr)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Username < matched[j].Username })
	return matched, nil
}

func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	origUsr, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.Username != "" {
		origUsr.Username = usr.Username
	}
	if usr.Email != "" {
		origUsr.Email = usr.Email
	}
	if usr.FullName != "" {
		origUsr.FullName = usr.FullName
	}
	if usr.Role != "" {
		origUsr.Role = usr.Role
	}
	if usr.Photo != "" {
		origUsr.Photo = usr.Photo
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		origUsr.IsActive = *isActive
	}
	origUsr.UpdatedAt = usr.UpdatedAt

	repo.db.table[usr.ID] = origUsr
	return *origUsr, nil
}

func (repo *userRepository) SetLastLogin(usr user.User, t time.Time) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origUsr, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	origUsr.LastLogin = t
	return *origUsr, nil
}

func isExcluded(usr user.User, excludedUsers []user.User, n int) bool {
	if n <= 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excludedUsers[i].ID >= usr.ID })
	return idx < n && excludedUsers[idx].ID == usr.ID
}

// Statuses

var statusPKCount int

func (repo *userRepository) CreateStatus(status user.Status) (user.Status, error) {
	repo.statuses.Lock()
	defer repo.statuses.Unlock()

	statusPKCount++
	status.ID = statusPKCount
	repo.statuses.table[status.ID] = &status
	return status, nil
}

func (repo *userRepository) GetStatusByID(id int) (user.Status, error) {
	repo.statuses.RLock()
	defer repo.statuses.RUnlock()

	if status, ok := repo.statuses.table[id]; ok {
		return *status, nil
	}
	return user.Status{}, user.ErrStatusNotFound
}

func (repo *userRepository) QueryUserStatuses(userID int) ([]user.Status, error) {
	repo.statuses.RLock()
	defer repo.statuses.RUnlock()

	var statuses []user.Status
	for _, status := range repo.statuses.table {
		if status.UserID == userID {
			statuses = append(statuses, *status)
		}
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].CreatedAt.After(statuses[j].CreatedAt) })
	return statuses, nil
}

func (repo *userRepository) DeleteStatus(id int) error {
	repo.statuses.Lock()
	defer repo.statuses.Unlock()
	delete(repo.statuses.table, id)
	return nil
}
