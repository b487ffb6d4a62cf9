package blog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bloghive/bloghive/internal/instrumentation"
	"github.com/bloghive/bloghive/internal/middleware"
	"github.com/bloghive/bloghive/internal/users"
	"github.com/bloghive/bloghive/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type newBlogRequest struct {
	Title     string `json:"title"`
	BlogImage string `json:"blogImage"`
	BlogText  string `json:"blogText"`
}

type updateBlogRequest struct {
	Title     string `json:"title"`
	BlogImage string `json:"blogImage"`
	BlogText  string `json:"blogText"`
}

type blogRepo interface {
	Insert(ctx context.Context, blog *Blog) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Blog, error)
	All(ctx context.Context) ([]*Blog, error)
	Save(ctx context.Context, blog *Blog) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type authorResolver interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*users.User, error)
}

type Handler struct {
	repo    blogRepo
	userDir authorResolver
	instr   *instrumentation.Instrumentation
}

func NewHandler(
	repo blogRepo,
	userDir authorResolver,
	instr *instrumentation.Instrumentation,
) *Handler {
	return &Handler{
		repo:    repo,
		userDir: userDir,
		instr:   instr,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	blogsRouter := mainRouter.PathPrefix("/api/blogs").Subrouter()
	blogsRouter.HandleFunc("", handler.handleCreate).Methods("POST", "OPTIONS").Name("new-blog")
	blogsRouter.HandleFunc("", handler.handleList).Methods("GET").Name("all-blogs")
	blogsRouter.HandleFunc("/{id}", handler.handleGet).Methods("GET").Name("get-blog")
	blogsRouter.HandleFunc("/{id}", handler.handleUpdate).Methods("PUT", "OPTIONS").Name("update-blog")
	blogsRouter.HandleFunc("/{id}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("delete-blog")
	blogsRouter.HandleFunc("/{id}/like", handler.handleToggleLike).Methods("POST", "OPTIONS").Name("like-blog")
	blogsRouter.HandleFunc("/{id}/dislike", handler.handleToggleDislike).Methods("POST", "OPTIONS").Name("dislike-blog")
}

func (handler *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	authorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	var newBlogReq newBlogRequest
	if err := json.NewDecoder(r.Body).Decode(&newBlogReq); err != nil {
		log.Errorf("new blog, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request data")
		return
	}

	if newBlogReq.Title == "" || newBlogReq.BlogText == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "title and blogText are required")
		return
	}

	newBlog := &Blog{
		Title:      newBlogReq.Title,
		Author:     authorID,
		DatePosted: time.Now(),
		BlogImage:  newBlogReq.BlogImage,
		BlogText:   newBlogReq.BlogText,
		Likes:      []primitive.ObjectID{},
		Dislikes:   []primitive.ObjectID{},
	}

	if _, err := handler.repo.Insert(r.Context(), newBlog); err != nil {
		log.Errorf("add new blog failed: %s", err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server Error", err)
		return
	}

	handler.instr.CounterBlogPosts.Inc()
	log.Tracef("new blog %s: [%s] added", newBlog.ID.Hex(), newBlog.Title)

	handler.writeBlogResponse(w, newBlog)
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	blogs, err := handler.repo.All(r.Context())
	if err != nil {
		log.Errorf("list blogs: %s", err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}

	resolved := make([]BlogWithAuthor, 0, len(blogs))
	for _, b := range blogs {
		resolved = append(resolved, handler.resolveAuthor(r.Context(), b))
	}

	respBytes, err := json.Marshal(resolved)
	if err != nil {
		log.Errorf("marshal blogs: %s", err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	b, ok := handler.getBlogFromRequest(w, r)
	if !ok {
		return
	}

	resolved := handler.resolveAuthor(r.Context(), b)
	respBytes, err := json.Marshal(resolved)
	if err != nil {
		log.Errorf("marshal blog %s: %s", b.ID.Hex(), err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	b, ok := handler.getBlogFromRequest(w, r)
	if !ok {
		return
	}

	if !b.IsAuthor(requesterID) {
		pkg.WriteJSONError(w, http.StatusForbidden, "User not authorized")
		return
	}

	var updateReq updateBlogRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		log.Errorf("update blog, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request data")
		return
	}

	b.ApplyUpdate(updateReq.Title, updateReq.BlogImage, updateReq.BlogText)

	if err := handler.repo.Save(r.Context(), b); err != nil {
		log.Errorf("update blog %s: %s", b.ID.Hex(), err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}

	log.Tracef("blog %s updated by %s", b.ID.Hex(), requesterID.Hex())
	handler.writeBlogResponse(w, b)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	b, ok := handler.getBlogFromRequest(w, r)
	if !ok {
		return
	}

	if !b.IsAuthor(requesterID) {
		pkg.WriteJSONError(w, http.StatusForbidden, "User not authorized")
		return
	}

	if err := handler.repo.Delete(r.Context(), b.ID); err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "Blog not found")
			return
		}
		log.Errorf("delete blog %s: %s", b.ID.Hex(), err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}

	log.Tracef("blog %s deleted by author %s", b.ID.Hex(), requesterID.Hex())
	pkg.WriteJSONResponseOK(w, `{"message": "Blog removed"}`)
}

func (handler *Handler) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	b, ok := handler.getBlogFromRequest(w, r)
	if !ok {
		return
	}

	nowLiked := b.ToggleLike(requesterID)

	if err := handler.repo.Save(r.Context(), b); err != nil {
		log.Errorf("toggle like on blog %s: %s", b.ID.Hex(), err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}

	handler.instr.CounterReactions.WithLabelValues("like").Inc()
	log.Tracef("user %s toggled like on blog %s, liked now: %t", requesterID.Hex(), b.ID.Hex(), nowLiked)

	handler.writeBlogResponse(w, b)
}

func (handler *Handler) handleToggleDislike(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	b, ok := handler.getBlogFromRequest(w, r)
	if !ok {
		return
	}

	nowDisliked := b.ToggleDislike(requesterID)

	if err := handler.repo.Save(r.Context(), b); err != nil {
		log.Errorf("toggle dislike on blog %s: %s", b.ID.Hex(), err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}

	handler.instr.CounterReactions.WithLabelValues("dislike").Inc()
	log.Tracef("user %s toggled dislike on blog %s, disliked now: %t", requesterID.Hex(), b.ID.Hex(), nowDisliked)

	handler.writeBlogResponse(w, b)
}

// getBlogFromRequest loads the blog addressed by the route id var, writing
// the 404 response itself when there is no such document
func (handler *Handler) getBlogFromRequest(w http.ResponseWriter, r *http.Request) (*Blog, bool) {
	vars := mux.Vars(r)

	blogID, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		pkg.WriteJSONError(w, http.StatusNotFound, "Blog not found")
		return nil, false
	}

	b, err := handler.repo.GetByID(r.Context(), blogID)
	if err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "Blog not found")
			return nil, false
		}
		log.Errorf("get blog %s: %s", blogID.Hex(), err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return nil, false
	}

	return b, true
}

func (handler *Handler) resolveAuthor(ctx context.Context, b *Blog) BlogWithAuthor {
	resolved := BlogWithAuthor{Blog: *b}

	author, err := handler.userDir.GetByID(ctx, b.Author)
	if err != nil {
		// author document gone, keep the post with a bare author id
		log.Tracef("resolve author %s for blog %s: %s", b.Author.Hex(), b.ID.Hex(), err)
		resolved.Author = AuthorInfo{ID: b.Author}
		return resolved
	}

	resolved.Author = AuthorInfo{
		ID:       author.ID,
		Username: author.Username,
		Email:    author.Email,
	}
	return resolved
}

func (handler *Handler) writeBlogResponse(w http.ResponseWriter, b *Blog) {
	respBytes, err := json.Marshal(b)
	if err != nil {
		log.Errorf("marshal blog response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error")
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}
