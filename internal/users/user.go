package users

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user exists already")
	ErrAlreadyFollowing = errors.New("already following")
	ErrSelfFollow       = errors.New("cannot follow self")
)

// User - the password hash travels through bson only, it is never
// serialized into a response
type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username       string               `bson:"username" json:"username"`
	Email          string               `bson:"email" json:"email"`
	Password       string               `bson:"password" json:"-"`
	Bio            string               `bson:"bio,omitempty" json:"bio"`
	ProfilePicture string               `bson:"profilePicture,omitempty" json:"profilePicture"`
	Followers      []primitive.ObjectID `bson:"followers" json:"followers"`
	Following      []primitive.ObjectID `bson:"following" json:"following"`
}

func (u *User) IsFollowedBy(userID primitive.ObjectID) bool {
	for _, followerID := range u.Followers {
		if followerID == userID {
			return true
		}
	}
	return false
}

// ApplyProfileUpdate - empty fields retain the prior value, an explicitly
// provided empty string counts as "not provided"
func (u *User) ApplyProfileUpdate(username, bio, profilePicture string) {
	if username != "" {
		u.Username = username
	}
	if bio != "" {
		u.Bio = bio
	}
	if profilePicture != "" {
		u.ProfilePicture = profilePicture
	}
}

// AddFollower records the relationship on both documents in memory,
// persisting both sides is on the caller
func AddFollower(target, requester *User) {
	target.Followers = append(target.Followers, requester.ID)
	requester.Following = append(requester.Following, target.ID)
}

// RemoveFollower is idempotent, removing an absent member is a no-op
func RemoveFollower(target, requester *User) {
	target.Followers = removeID(target.Followers, requester.ID)
	requester.Following = removeID(requester.Following, target.ID)
}

func removeID(ids []primitive.ObjectID, toRemove primitive.ObjectID) []primitive.ObjectID {
	filtered := ids[:0]
	for _, id := range ids {
		if id != toRemove {
			filtered = append(filtered, id)
		}
	}
	return filtered
}
