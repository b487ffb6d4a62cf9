package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bloghive/bloghive/internal/middleware"
	"github.com/bloghive/bloghive/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"
)

type updateProfileRequest struct {
	Username       string `json:"username"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profilePicture"`
}

type userRepo interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	Save(ctx context.Context, user *User) error
}

type Handler struct {
	repo userRepo
}

func NewHandler(repo userRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	usersRouter := mainRouter.PathPrefix("/api/users").Subrouter()
	usersRouter.HandleFunc("", handler.handleUpdateProfile).Methods("PUT", "OPTIONS").Name("update-profile")
	usersRouter.HandleFunc("/{id}", handler.handleGet).Methods("GET", "OPTIONS").Name("get-user")
	usersRouter.HandleFunc("/{id}/follow", handler.handleFollow).Methods("POST", "OPTIONS").Name("follow-user")
	usersRouter.HandleFunc("/{id}/unfollow", handler.handleUnfollow).Methods("POST", "OPTIONS").Name("unfollow-user")
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	userID, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		pkg.WriteJSONError(w, http.StatusNotFound, "User not found")
		return
	}

	user, err := handler.repo.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Errorf("get user %s: %s", userID.Hex(), err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error")
		return
	}

	handler.writeUserResponse(w, user)
}

// handleUpdateProfile - profile updates are self-only, the identity resolved
// by the auth middleware is the sole target
func (handler *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	var updateReq updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		log.Errorf("update profile, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request data")
		return
	}

	user, err := handler.repo.GetByID(r.Context(), requesterID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Errorf("update profile, get user %s: %s", requesterID.Hex(), err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server Error")
		return
	}

	user.ApplyProfileUpdate(updateReq.Username, updateReq.Bio, updateReq.ProfilePicture)

	if err := handler.repo.Save(r.Context(), user); err != nil {
		log.Errorf("update profile, save user %s: %s", requesterID.Hex(), err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server Error")
		return
	}

	log.Tracef("user %s updated profile", requesterID.Hex())
	handler.writeUserResponse(w, user)
}

func (handler *Handler) handleFollow(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	vars := mux.Vars(r)
	targetID, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		pkg.WriteJSONError(w, http.StatusNotFound, "User not found")
		return
	}

	if targetID == requesterID {
		pkg.WriteJSONError(w, http.StatusBadRequest, "You cannot follow yourself")
		return
	}

	target, err := handler.repo.GetByID(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Errorf("follow, get target %s: %s", targetID.Hex(), err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error")
		return
	}

	requester, err := handler.repo.GetByID(r.Context(), requesterID)
	if err != nil {
		log.Errorf("follow, get requester %s: %s", requesterID.Hex(), err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error")
		return
	}

	if target.IsFollowedBy(requesterID) {
		pkg.WriteJSONError(w, http.StatusBadRequest, "You are already following this user")
		return
	}

	AddFollower(target, requester)

	// two documents, no cross-document transaction: a failure between the
	// writes leaves an asymmetric relationship, see handleUnfollow for repair
	if err := handler.repo.Save(r.Context(), target); err != nil {
		log.Errorf("follow, save target %s: %s", targetID.Hex(), err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if err := handler.repo.Save(r.Context(), requester); err != nil {
		log.Errorf("follow, save requester %s after target saved, relationship now asymmetric: %s",
			requesterID.Hex(), err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error")
		return
	}

	log.Tracef("user %s now follows %s", requesterID.Hex(), targetID.Hex())
	pkg.WriteJSONResponseOK(w, `{"message": "User followed"}`)
}

func (handler *Handler) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	vars := mux.Vars(r)
	targetID, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		pkg.WriteJSONError(w, http.StatusNotFound, "User not found")
		return
	}

	target, err := handler.repo.GetByID(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Errorf("unfollow, get target %s: %s", targetID.Hex(), err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error")
		return
	}

	requester, err := handler.repo.GetByID(r.Context(), requesterID)
	if err != nil {
		log.Errorf("unfollow, get requester %s: %s", requesterID.Hex(), err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error")
		return
	}

	// removal of an absent member is a no-op, so unfollow doubles as the
	// repair path for an asymmetric relationship
	RemoveFollower(target, requester)

	err = multierr.Combine(
		handler.repo.Save(r.Context(), target),
		handler.repo.Save(r.Context(), requester),
	)
	if err != nil {
		log.Errorf("unfollow, save users %s / %s: %s", targetID.Hex(), requesterID.Hex(), err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error")
		return
	}

	log.Tracef("user %s unfollowed %s", requesterID.Hex(), targetID.Hex())
	pkg.WriteJSONResponseOK(w, `{"message": "User unfollowed"}`)
}

func (handler *Handler) writeUserResponse(w http.ResponseWriter, user *User) {
	userBytes, err := json.Marshal(user)
	if err != nil {
		log.Errorf("marshal user response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error")
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, userBytes)
}
