package users

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ userRepo = (*repoMock)(nil)

type repoMock struct {
	Users map[primitive.ObjectID]*User
	mutex sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Users: make(map[primitive.ObjectID]*User),
	}
}

func (r *repoMock) GetByID(_ context.Context, id primitive.ObjectID) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.Users[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	userCopy := *user
	return &userCopy, nil
}

func (r *repoMock) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, user := range r.Users {
		if user.Email == email {
			userCopy := *user
			return &userCopy, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *repoMock) Insert(_ context.Context, user *User) (primitive.ObjectID, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.Users {
		if existing.Email == user.Email {
			return primitive.NilObjectID, ErrUserExists
		}
	}

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	userCopy := *user
	r.Users[user.ID] = &userCopy
	return user.ID, nil
}

func (r *repoMock) Save(_ context.Context, user *User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Users[user.ID]; !ok {
		return ErrUserNotFound
	}

	userCopy := *user
	r.Users[user.ID] = &userCopy
	return nil
}
