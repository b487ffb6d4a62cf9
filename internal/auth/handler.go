package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bloghive/bloghive/internal/instrumentation"
	"github.com/bloghive/bloghive/internal/middleware"
	"github.com/bloghive/bloghive/internal/users"
	"github.com/bloghive/bloghive/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type userDirectory interface {
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	Insert(ctx context.Context, user *users.User) (primitive.ObjectID, error)
}

type Handler struct {
	userDir userDirectory
	tokens  *TokenService
	instr   *instrumentation.Instrumentation
}

func NewHandler(
	userDir userDirectory,
	tokens *TokenService,
	instr *instrumentation.Instrumentation,
) *Handler {
	return &Handler{
		userDir: userDir,
		tokens:  tokens,
		instr:   instr,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	allowedPerMin int,
) {
	authRouter := mainRouter.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/register", handler.handleRegister).Methods("POST", "OPTIONS").Name("register")
	authRouter.HandleFunc("/login", handler.handleLogin).Methods("POST", "OPTIONS").Name("login")

	// rate limit register and login to prevent abuse
	if rateLimiter != nil {
		authRouter.Use(middleware.RateLimit(rateLimiter, "auth", allowedPerMin, handler.instr))
	}
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var registerReq registerRequest
	if err := json.NewDecoder(r.Body).Decode(&registerReq); err != nil {
		log.Errorf("register, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request data")
		return
	}

	if registerReq.Username == "" || registerReq.Email == "" || registerReq.Password == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	_, err := handler.userDir.GetByEmail(r.Context(), registerReq.Email)
	switch {
	case err == nil:
		pkg.WriteJSONError(w, http.StatusBadRequest, "User already exists")
		return
	case !errors.Is(err, users.ErrUserNotFound):
		log.Errorf("register, get user by email: %s", err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}

	passwordHash, err := pkg.HashPassword(registerReq.Password)
	if err != nil {
		log.Errorf("register, hash password: %s", err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}

	newUser := &users.User{
		Username:  registerReq.Username,
		Email:     registerReq.Email,
		Password:  passwordHash,
		Followers: []primitive.ObjectID{},
		Following: []primitive.ObjectID{},
	}

	userID, err := handler.userDir.Insert(r.Context(), newUser)
	if err != nil {
		if errors.Is(err, users.ErrUserExists) {
			// registration race on the unique email index
			pkg.WriteJSONError(w, http.StatusBadRequest, "User already exists")
			return
		}
		log.Errorf("register, insert user: %s", err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}

	token, err := handler.tokens.Issue(userID)
	if err != nil {
		log.Errorf("register, issue token: %s", err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}

	handler.instr.CounterRegisteredUsers.Inc()
	log.Tracef("new user registered: %s", userID.Hex())

	handler.writeTokenResponse(w, token, userID)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var loginReq loginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		log.Errorf("login, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request data")
		return
	}

	if loginReq.Email == "" || loginReq.Password == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	// same response for an unknown email and a wrong password,
	// no user enumeration signal
	user, err := handler.userDir.GetByEmail(r.Context(), loginReq.Email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			log.Tracef("[email] failed login attempt for: %s", loginReq.Email)
			pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		log.Errorf("login, get user by email: %s", err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}

	if !pkg.CheckPasswordHash(loginReq.Password, user.Password) {
		log.Tracef("[password] failed login attempt for: %s", loginReq.Email)
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token, err := handler.tokens.Issue(user.ID)
	if err != nil {
		log.Errorf("login, issue token: %s", err)
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}

	handler.instr.CounterLogins.Inc()
	log.Trace("new login success")

	handler.writeTokenResponse(w, token, user.ID)
}

func (handler *Handler) writeTokenResponse(w http.ResponseWriter, token string, userID primitive.ObjectID) {
	respBytes, err := json.Marshal(tokenResponse{
		Token:  token,
		UserID: userID.Hex(),
	})
	if err != nil {
		pkg.WriteJSONErrorWithDetail(w, http.StatusInternalServerError, "Server error", err)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}
