package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/types"
	"github.com/mintbay/go-mintbay-server/util"
)

type UserService struct {
	userRepo repository.Repository
}

func NewUserService(dbSelector repository.DBSelector) *UserService {
	userRepo, err := dbSelector.ChooseDB(repository.Users)
	if err != nil {
		panic(err)
	}
	return &UserService{userRepo: userRepo}
}

// user documents are keyed by the hash of the lowercased email
func userDocID(email string) string {
	return util.Sha256Hex([]byte(strings.ToLower(email)))
}

// Register creates a new user account with a scrypt password hash
func (us *UserService) Register(email string, password string) (*types.User, error) {
	if _, err := us.GetByEmail(email); err == nil {
		return nil, types.ErrConflict
	} else if err != types.ErrNotFound {
		return nil, err
	}

	hash, salt, hErr := util.HashPassword(password)
	if hErr != nil {
		return nil, hErr
	}
	user := &types.User{
		UserID:       uuid.NewString(),
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		PasswordSalt: salt,
		Created:      time.Now().UTC().UnixMilli(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if sErr := us.userRepo.Save(ctx, userDocID(email), user); sErr != nil {
		return nil, sErr
	}
	return user, nil
}

// GetByEmail returns a user by email address
func (us *UserService) GetByEmail(email string) (*types.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	response, err := us.userRepo.GetByID(ctx, userDocID(email))
	if err != nil {
		return nil, err
	}
	var user types.User
	if mErr := repository.MapToObject(response, &user); mErr != nil {
		return nil, mErr
	}
	return &user, nil
}

// GetByUserID returns a user by its stable user id (the JWT subject)
func (us *UserService) GetByUserID(userID string) (*types.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	response, err := us.userRepo.Find(ctx, map[string]interface{}{
		"selector": map[string]interface{}{
			"userId": userID,
		},
		"limit": 1,
	})
	if err != nil {
		return nil, err
	}
	var users []types.User
	if mErr := repository.MapToFindResults(response, &users); mErr != nil {
		return nil, mErr
	}
	if len(users) == 0 {
		return nil, types.ErrNotFound
	}
	return &users[0], nil
}

// UpdateUser saves the modified user document (carries its couchdb _rev)
func (us *UserService) UpdateUser(user *types.User) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	return us.userRepo.Update(ctx, userDocID(user.Email), user)
}

// Authenticate verifies the password of an existing account. A wrong password
// returns ErrNotAuthorized, a missing account ErrNotFound.
func (us *UserService) Authenticate(email string, password string) (*types.User, error) {
	user, err := us.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	ok, vErr := util.VerifyPassword(password, user.PasswordHash, user.PasswordSalt)
	if vErr != nil {
		return nil, vErr
	}
	if !ok {
		return nil, types.ErrNotAuthorized
	}
	return user, nil
}
