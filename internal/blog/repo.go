package blog

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Repo struct {
	blogs *mongo.Collection
}

func NewRepo(db *mongo.Database) *Repo {
	return &Repo{
		blogs: db.Collection("blogs"),
	}
}

func (r *Repo) Insert(ctx context.Context, blog *Blog) (primitive.ObjectID, error) {
	res, err := r.blogs.InsertOne(ctx, blog)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert blog: %w", err)
	}

	insertedID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("unexpected inserted id type")
	}

	blog.ID = insertedID
	return insertedID, nil
}

func (r *Repo) GetByID(ctx context.Context, id primitive.ObjectID) (*Blog, error) {
	var blog Blog
	err := r.blogs.FindOne(ctx, bson.M{"_id": id}).Decode(&blog)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBlogNotFound
		}
		return nil, fmt.Errorf("find blog by id: %w", err)
	}
	return &blog, nil
}

// All returns the entire ledger, unpaginated, in store order
func (r *Repo) All(ctx context.Context) ([]*Blog, error) {
	cursor, err := r.blogs.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find blogs: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var blogs []*Blog
	if err := cursor.All(ctx, &blogs); err != nil {
		return nil, fmt.Errorf("decode blogs: %w", err)
	}

	return blogs, nil
}

// Save replaces the whole document. Two concurrent toggles on the same post
// race read-modify-write, last write wins at the document level.
func (r *Repo) Save(ctx context.Context, blog *Blog) error {
	res, err := r.blogs.ReplaceOne(ctx, bson.M{"_id": blog.ID}, blog)
	if err != nil {
		return fmt.Errorf("save blog: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrBlogNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.blogs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete blog: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrBlogNotFound
	}
	return nil
}
