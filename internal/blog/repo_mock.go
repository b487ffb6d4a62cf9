package blog

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ blogRepo = (*repoMock)(nil)

type repoMock struct {
	Posts map[primitive.ObjectID]*Blog
	mutex sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Posts: make(map[primitive.ObjectID]*Blog),
	}
}

func (r *repoMock) Insert(_ context.Context, blog *Blog) (primitive.ObjectID, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if blog.ID.IsZero() {
		blog.ID = primitive.NewObjectID()
	}

	blogCopy := *blog
	r.Posts[blog.ID] = &blogCopy
	return blog.ID, nil
}

func (r *repoMock) GetByID(_ context.Context, id primitive.ObjectID) (*Blog, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	b, ok := r.Posts[id]
	if !ok {
		return nil, ErrBlogNotFound
	}

	blogCopy := *b
	return &blogCopy, nil
}

func (r *repoMock) All(_ context.Context) ([]*Blog, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var blogs []*Blog
	for id := range r.Posts {
		blogCopy := *r.Posts[id]
		blogs = append(blogs, &blogCopy)
	}
	return blogs, nil
}

func (r *repoMock) Save(_ context.Context, blog *Blog) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Posts[blog.ID]; !ok {
		return ErrBlogNotFound
	}

	blogCopy := *blog
	r.Posts[blog.ID] = &blogCopy
	return nil
}

func (r *repoMock) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Posts[id]; !ok {
		return ErrBlogNotFound
	}

	delete(r.Posts, id)
	return nil
}
