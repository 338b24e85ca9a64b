package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/types"
	"github.com/mintbay/go-mintbay-server/util"
	"github.com/stretchr/testify/assert"
)

func registerUserNotFound() {
	notFound, _ := httpmock.NewJsonResponder(404, types.CouchDBError{Error: "not_found", Reason: "missing"})
	httpmock.RegisterResponder("GET", fmt.Sprintf(`=~^%s/%s/.*`, testCouchURL, repository.Users), notFound)
}

func registerUserDoc(user *types.User) {
	found, _ := httpmock.NewJsonResponder(200, user)
	httpmock.RegisterResponder("GET", fmt.Sprintf(`=~^%s/%s/.*`, testCouchURL, repository.Users), found)
}

func registerUserSave() {
	saved, _ := httpmock.NewJsonResponder(201, types.OK{IsOK: true})
	httpmock.RegisterResponder("PUT", fmt.Sprintf(`=~^%s/%s/.*`, testCouchURL, repository.Users), saved)
}

func TestRegisterNewUser(t *testing.T) {
	selector := newMockSelector(t, repository.Users)
	registerUserNotFound()
	registerUserSave()

	us := NewUserService(selector)
	user, err := us.Register("Alice@Example.com", "correct horse battery")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEmpty(t, user.UserID)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEmpty(t, user.PasswordSalt)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	selector := newMockSelector(t, repository.Users)
	registerUserDoc(&types.User{UserID: "u-1", Email: "alice@example.com"})

	us := NewUserService(selector)
	_, err := us.Register("alice@example.com", "correct horse battery")
	assert.True(t, errors.Is(err, types.ErrConflict))
}

func TestAuthenticate(t *testing.T) {
	hash, salt, hErr := util.HashPassword("correct horse battery")
	if hErr != nil {
		t.Fatal(hErr)
	}

	selector := newMockSelector(t, repository.Users)
	registerUserDoc(&types.User{
		UserID:       "u-1",
		Email:        "alice@example.com",
		PasswordHash: hash,
		PasswordSalt: salt,
	})

	us := NewUserService(selector)

	user, err := us.Authenticate("alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "u-1", user.UserID)

	_, wrongErr := us.Authenticate("alice@example.com", "incorrect horse battery")
	assert.True(t, errors.Is(wrongErr, types.ErrNotAuthorized))
}

func TestAuthenticateUnknownUser(t *testing.T) {
	selector := newMockSelector(t, repository.Users)
	registerUserNotFound()

	us := NewUserService(selector)
	_, err := us.Authenticate("nobody@example.com", "whatever password")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}
