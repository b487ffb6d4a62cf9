package blog

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrBlogNotFound = errors.New("blog not found")

type Blog struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title      string               `bson:"title" json:"title"`
	Author     primitive.ObjectID   `bson:"author" json:"author"`
	DatePosted time.Time            `bson:"datePosted" json:"datePosted"`
	BlogImage  string               `bson:"blogImage,omitempty" json:"blogImage,omitempty"`
	BlogText   string               `bson:"blogText" json:"blogText"`
	Likes      []primitive.ObjectID `bson:"likes" json:"likes"`
	Dislikes   []primitive.ObjectID `bson:"dislikes" json:"dislikes"`
}

// AuthorInfo is the resolved author of a post, only username and email are
// ever exposed
type AuthorInfo struct {
	ID       primitive.ObjectID `json:"id"`
	Username string             `json:"username"`
	Email    string             `json:"email"`
}

// BlogWithAuthor replaces the raw author id with the resolved author info
// in list and get responses
type BlogWithAuthor struct {
	Blog
	Author AuthorInfo `json:"author"`
}

func (b *Blog) IsAuthor(userID primitive.ObjectID) bool {
	return b.Author == userID
}

// ApplyUpdate - empty fields retain the prior value, an explicitly provided
// empty string counts as "not provided"
func (b *Blog) ApplyUpdate(title, blogImage, blogText string) {
	if title != "" {
		b.Title = title
	}
	if blogImage != "" {
		b.BlogImage = blogImage
	}
	if blogText != "" {
		b.BlogText = blogText
	}
}

// ToggleLike adds the user to the likes set, or removes it when already
// present. It deliberately leaves the dislikes set alone: a user who likes
// and then dislikes a post sits in both sets.
func (b *Blog) ToggleLike(userID primitive.ObjectID) (nowLiked bool) {
	if containsID(b.Likes, userID) {
		b.Likes = removeID(b.Likes, userID)
		return false
	}
	b.Likes = append(b.Likes, userID)
	return true
}

// ToggleDislike mirrors ToggleLike on the dislikes set, the likes set is
// left alone
func (b *Blog) ToggleDislike(userID primitive.ObjectID) (nowDisliked bool) {
	if containsID(b.Dislikes, userID) {
		b.Dislikes = removeID(b.Dislikes, userID)
		return false
	}
	b.Dislikes = append(b.Dislikes, userID)
	return true
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
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
