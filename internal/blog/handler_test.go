package blog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bloghive/bloghive/internal/instrumentation"
	"github.com/bloghive/bloghive/internal/middleware"
	"github.com/bloghive/bloghive/internal/users"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ authorResolver = (*userDirMock)(nil)

type userDirMock struct {
	Users map[primitive.ObjectID]*users.User
}

func (d *userDirMock) GetByID(_ context.Context, id primitive.ObjectID) (*users.User, error) {
	u, ok := d.Users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return u, nil
}

func (d *userDirMock) addUser() *users.User {
	u := &users.User{
		ID:       primitive.NewObjectID(),
		Username: gofakeit.Username(),
		Email:    gofakeit.Email(),
		Password: "$2a$14$not-a-real-hash",
	}
	d.Users[u.ID] = u
	return u
}

type testHarness struct {
	repo    *repoMock
	userDir *userDirMock
	instr   *instrumentation.Instrumentation
	router  *mux.Router
}

func getTestHandlerAndRouter(t *testing.T) *testHarness {
	t.Helper()
	h := &testHarness{
		repo:    newRepoMock(),
		userDir: &userDirMock{Users: make(map[primitive.ObjectID]*users.User)},
		instr:   instrumentation.NewTestInstrumentation(),
	}
	h.router = mux.NewRouter()
	NewHandler(h.repo, h.userDir, h.instr).SetupRoutes(h.router)
	return h
}

func (h *testHarness) addBlog(t *testing.T, author primitive.ObjectID) *Blog {
	t.Helper()
	b := &Blog{
		Title:      gofakeit.Sentence(3),
		Author:     author,
		DatePosted: time.Now(),
		BlogText:   gofakeit.Paragraph(1, 2, 5, " "),
		Likes:      []primitive.ObjectID{},
		Dislikes:   []primitive.ObjectID{},
	}
	_, err := h.repo.Insert(t.Context(), b)
	require.NoError(t, err)
	return b
}

func serveAs(r *mux.Router, req *http.Request, requesterID primitive.ObjectID) *httptest.ResponseRecorder {
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), requesterID))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHandler_handleCreate(t *testing.T) {
	h := getTestHandlerAndRouter(t)
	author := h.userDir.addUser()

	reqBody := `{"title": "first post", "blogText": "hello there"}`
	req, err := http.NewRequest("POST", "/api/blogs", strings.NewReader(reqBody))
	require.NoError(t, err)
	rr := serveAs(h.router, req, author.ID)

	require.Equal(t, http.StatusOK, rr.Code)

	var created Blog
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "first post", created.Title)
	assert.Equal(t, "hello there", created.BlogText)
	assert.Equal(t, author.ID, created.Author)
	assert.False(t, created.ID.IsZero())
	assert.Empty(t, created.Likes)
	assert.Empty(t, created.Dislikes)
	assert.False(t, created.DatePosted.IsZero())

	stored, err := h.repo.GetByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "first post", stored.Title)

	assert.Equal(t, float64(1), testutil.ToFloat64(h.instr.CounterBlogPosts))
}

func TestHandler_handleCreate_missingFields(t *testing.T) {
	h := getTestHandlerAndRouter(t)
	author := h.userDir.addUser()

	for _, reqBody := range []string{
		`{"blogText": "no title"}`,
		`{"title": "no text"}`,
		`{}`,
	} {
		req, err := http.NewRequest("POST", "/api/blogs", strings.NewReader(reqBody))
		require.NoError(t, err)
		rr := serveAs(h.router, req, author.ID)

		assert.Equal(t, http.StatusBadRequest, rr.Code, reqBody)
		assert.Contains(t, rr.Body.String(), "title and blogText are required")
	}
	assert.Empty(t, h.repo.Posts)
}

func TestHandler_handleCreate_noIdentity(t *testing.T) {
	h := getTestHandlerAndRouter(t)

	req, err := http.NewRequest("POST", "/api/blogs", strings.NewReader(`{"title": "t", "blogText": "b"}`))
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "authorization denied")
}

func TestHandler_handleList_resolvesAuthors(t *testing.T) {
	h := getTestHandlerAndRouter(t)
	author := h.userDir.addUser()
	h.addBlog(t, author.ID)
	h.addBlog(t, author.ID)
	// a post whose author document has been removed still comes back
	orphan := h.addBlog(t, primitive.NewObjectID())

	req, err := http.NewRequest("GET", "/api/blogs", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp []struct {
		ID     primitive.ObjectID `json:"id"`
		Title  string             `json:"title"`
		Author AuthorInfo         `json:"author"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp, 3)

	for _, b := range resp {
		if b.ID == orphan.ID {
			assert.Equal(t, orphan.Author, b.Author.ID)
			assert.Empty(t, b.Author.Username)
			continue
		}
		assert.Equal(t, author.ID, b.Author.ID)
		assert.Equal(t, author.Username, b.Author.Username)
		assert.Equal(t, author.Email, b.Author.Email)
	}

	// the author's password hash never appears in a blog listing
	assert.NotContains(t, rr.Body.String(), author.Password)
}

func TestHandler_handleGet(t *testing.T) {
	h := getTestHandlerAndRouter(t)
	author := h.userDir.addUser()
	b := h.addBlog(t, author.ID)

	req, err := http.NewRequest("GET", "/api/blogs/"+b.ID.Hex(), nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), b.Title)
	assert.Contains(t, rr.Body.String(), author.Username)
}

func TestHandler_handleGet_notFound(t *testing.T) {
	h := getTestHandlerAndRouter(t)

	for _, id := range []string{primitive.NewObjectID().Hex(), "not-an-object-id"} {
		req, err := http.NewRequest("GET", "/api/blogs/"+id, nil)
		require.NoError(t, err)
		rr := httptest.NewRecorder()
		h.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "Blog not found")
	}
}

func TestHandler_handleUpdate(t *testing.T) {
	h := getTestHandlerAndRouter(t)
	author := h.userDir.addUser()
	b := h.addBlog(t, author.ID)
	originalText := b.BlogText

	// empty blogText keeps the stored value
	reqBody := `{"title": "updated title", "blogText": ""}`
	req, err := http.NewRequest("PUT", "/api/blogs/"+b.ID.Hex(), strings.NewReader(reqBody))
	require.NoError(t, err)
	rr := serveAs(h.router, req, author.ID)

	require.Equal(t, http.StatusOK, rr.Code)

	updated, err := h.repo.GetByID(t.Context(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated title", updated.Title)
	assert.Equal(t, originalText, updated.BlogText)
}

func TestHandler_handleUpdate_notAuthor(t *testing.T) {
	h := getTestHandlerAndRouter(t)
	author := h.userDir.addUser()
	intruder := h.userDir.addUser()
	b := h.addBlog(t, author.ID)

	req, err := http.NewRequest("PUT", "/api/blogs/"+b.ID.Hex(), strings.NewReader(`{"title": "hijacked"}`))
	require.NoError(t, err)
	rr := serveAs(h.router, req, intruder.ID)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "User not authorized")

	stored, err := h.repo.GetByID(t.Context(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Title, stored.Title)
}

func TestHandler_handleDelete(t *testing.T) {
	h := getTestHandlerAndRouter(t)
	author := h.userDir.addUser()
	b := h.addBlog(t, author.ID)

	req, err := http.NewRequest("DELETE", "/api/blogs/"+b.ID.Hex(), nil)
	require.NoError(t, err)
	rr := serveAs(h.router, req, author.ID)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Blog removed")

	_, err = h.repo.GetByID(t.Context(), b.ID)
	assert.ErrorIs(t, err, ErrBlogNotFound)
}

func TestHandler_handleDelete_notAuthor(t *testing.T) {
	h := getTestHandlerAndRouter(t)
	author := h.userDir.addUser()
	intruder := h.userDir.addUser()
	b := h.addBlog(t, author.ID)

	req, err := http.NewRequest("DELETE", "/api/blogs/"+b.ID.Hex(), nil)
	require.NoError(t, err)
	rr := serveAs(h.router, req, intruder.ID)

	assert.Equal(t, http.StatusForbidden, rr.Code)

	_, err = h.repo.GetByID(t.Context(), b.ID)
	assert.NoError(t, err)
}

func TestHandler_handleToggleLike(t *testing.T) {
	h := getTestHandlerAndRouter(t)
	author := h.userDir.addUser()
	reader := h.userDir.addUser()
	b := h.addBlog(t, author.ID)

	likeReq := func() *httptest.ResponseRecorder {
		req, err := http.NewRequest("POST", "/api/blogs/"+b.ID.Hex()+"/like", nil)
		require.NoError(t, err)
		return serveAs(h.router, req, reader.ID)
	}

	rr := likeReq()
	require.Equal(t, http.StatusOK, rr.Code)

	stored, err := h.repo.GetByID(t.Context(), b.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Likes, reader.ID)

	// liking again removes the like, back to the original state
	rr = likeReq()
	require.Equal(t, http.StatusOK, rr.Code)

	stored, err = h.repo.GetByID(t.Context(), b.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.Likes, reader.ID)
	assert.Empty(t, stored.Likes)

	assert.Equal(t, float64(2), testutil.ToFloat64(h.instr.CounterReactions.WithLabelValues("like")))
}

func TestHandler_likeThenDislike(t *testing.T) {
	h := getTestHandlerAndRouter(t)
	author := h.userDir.addUser()
	reader := h.userDir.addUser()
	b := h.addBlog(t, author.ID)

	for _, action := range []string{"like", "dislike"} {
		req, err := http.NewRequest("POST", fmt.Sprintf("/api/blogs/%s/%s", b.ID.Hex(), action), nil)
		require.NoError(t, err)
		rr := serveAs(h.router, req, reader.ID)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	// the two sets are independent, the reader now sits in both
	stored, err := h.repo.GetByID(t.Context(), b.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Likes, reader.ID)
	assert.Contains(t, stored.Dislikes, reader.ID)
}

func TestHandler_handleToggleLike_notFound(t *testing.T) {
	h := getTestHandlerAndRouter(t)
	reader := h.userDir.addUser()

	req, err := http.NewRequest("POST", "/api/blogs/"+primitive.NewObjectID().Hex()+"/like", nil)
	require.NoError(t, err)
	rr := serveAs(h.router, req, reader.ID)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Blog not found")
}

func TestSetupRoutes(t *testing.T) {
	h := getTestHandlerAndRouter(t)
	blogID := primitive.NewObjectID().Hex()

	for _, tc := range []struct {
		method    string
		path      string
		routeName string
	}{
		{method: "POST", path: "/api/blogs", routeName: "new-blog"},
		{method: "GET", path: "/api/blogs", routeName: "all-blogs"},
		{method: "GET", path: "/api/blogs/" + blogID, routeName: "get-blog"},
		{method: "PUT", path: "/api/blogs/" + blogID, routeName: "update-blog"},
		{method: "DELETE", path: "/api/blogs/" + blogID, routeName: "delete-blog"},
		{method: "POST", path: "/api/blogs/" + blogID + "/like", routeName: "like-blog"},
		{method: "POST", path: "/api/blogs/" + blogID + "/dislike", routeName: "dislike-blog"},
	} {
		t.Run(tc.routeName, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, tc.path, nil)
			require.NoError(t, err)

			var match mux.RouteMatch
			require.True(t, h.router.Match(req, &match))
			assert.Equal(t, tc.routeName, match.Route.GetName())
		})
	}
}
