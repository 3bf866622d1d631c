package user

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrStatusNotFound = errors.New("status not found")
)

type (
	Repository interface {
		CheckUsernameUniqueness(username, email string, excludedUsers ...User) error
		CreateUser(user User) (User, error)
		GetUserByID(id int) (User, error)
		GetUserByUsername(username string) (User, error)
		GetUserByUsernameOrEmail(username string) (User, error)
		// SearchUsers does a case-insensitive match on User.Username or User.FullName.
		SearchUsers(query string) ([]User, error)
		UpdateUser(user User, isActive *bool) (User, error)
		SetLastLogin(user User, t time.Time) (User, error)

		CreateStatus(status Status) (Status, error)
		GetStatusByID(id int) (Status, error)
		QueryUserStatuses(userID int) ([]Status, error)
		DeleteStatus(id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Register(nu NewUser) (User, error) {
	uname := core.CleanString(nu.Username, true /* lower */)
	email := core.CleanString(nu.Email, true /* lower */)
	if err := svc.checkUniqueness(uname, email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Username:  uname,
		Email:     email,
		FullName:  core.CleanString(nu.FullName),
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(usr)
}

func (svc *Service) GetByID(id int) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *Service) GetByUsername(uname string) (User, error) {
	return svc.repo.GetUserByUsername(core.CleanString(uname, true /* lower */))
}

func (svc *Service) GetByUsernameOrEmail(uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(core.CleanString(uname, true /* lower */))
}

func (svc *Service) Search(query string) ([]User, error) {
	return svc.repo.SearchUsers(core.CleanString(query))
}

func (svc *Service) Update(id int, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		Username:  core.CleanString(uu.Username, true /* lower */),
		Email:     core.CleanString(uu.Email, true /* lower */),
		FullName:  core.CleanString(uu.FullName),
		Photo:     uu.Photo,
		UpdatedAt: time.Now().UTC(),
	}
	if usr.Username != "" || usr.Email != "" {
		if err := svc.checkUniqueness(usr.Username, usr.Email, User{ID: id}); err != nil {
			return User{}, err
		}
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.UpdateUser(usr, uu.IsActive)
}

func (svc *Service) SetLastLogin(usr User) (User, error) {
	return svc.repo.SetLastLogin(usr, time.Now().UTC())
}

// Statuses

func (svc *Service) PostStatus(usr User, ns NewStatus) (Status, error) {
	return svc.repo.CreateStatus(Status{
		UserID:    usr.ID,
		Text:      core.CleanString(ns.Text),
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) GetStatus(id int) (Status, error) {
	return svc.repo.GetStatusByID(id)
}

func (svc *Service) QueryStatuses(userID int) ([]Status, error) {
	return svc.repo.QueryUserStatuses(userID)
}

func (svc *Service) DeleteStatus(id int) error {
	return svc.repo.DeleteStatus(id)
}
