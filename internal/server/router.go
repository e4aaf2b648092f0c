package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/veshchi/backend/internal/auth"
	"github.com/veshchi/backend/internal/checklist"
	"github.com/veshchi/backend/internal/faults"
	"github.com/veshchi/backend/internal/localstore"
	"github.com/veshchi/backend/internal/sharing"
	"go.uber.org/zap"
)

const userIDContextKey = "veshchi_user_id"

var (
	errMissingCredentials = errors.New("credential service dependency required")
	errMissingRegistry    = errors.New("sharing registry dependency required")
	errMissingLocalStore  = errors.New("local list store dependency required")
	errMissingTokenIssuer = errors.New("token issuer dependency required")
)

// Dependencies lists the services the HTTP surface exposes.
type Dependencies struct {
	Credentials *auth.Service
	Registry    *sharing.Service
	Local       *localstore.Service
	Tokens      *auth.TokenIssuer
	Logger      *zap.Logger
}

// NewHTTPHandler builds the router consumed by the presentation layer. Every
// response carries the tri-state envelope: success flag, human-readable
// message and an optional payload.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Credentials == nil {
		return nil, errMissingCredentials
	}
	if deps.Registry == nil {
		return nil, errMissingRegistry
	}
	if deps.Local == nil {
		return nil, errMissingLocalStore
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenIssuer
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		credentials: deps.Credentials,
		registry:    deps.Registry,
		local:       deps.Local,
		tokens:      deps.Tokens,
		logger:      logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/auth/logout", handler.handleLogout)
	protected.GET("/auth/me", handler.handleCurrentUser)
	protected.GET("/lists", handler.handleLocalLists)
	protected.POST("/lists", handler.handleCreateList)
	protected.GET("/lists/:id/items", handler.handleListItems)
	protected.PUT("/lists/:id/items", handler.handleSaveItems)
	protected.POST("/share", handler.handleShare)
	protected.GET("/shared/:id", handler.handleFetchShared)
	protected.POST("/shared/:id", handler.handleUpdateShared)
	protected.POST("/shared/:id/import", handler.handleImportShared)

	return router, nil
}

type httpHandler struct {
	credentials *auth.Service
	registry    *sharing.Service
	local       *localstore.Service
	tokens      *auth.TokenIssuer
	logger      *zap.Logger
}

type resultEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Payload interface{} `json:"payload,omitempty"`
}

func succeed(c *gin.Context, message string, payload interface{}) {
	c.JSON(http.StatusOK, resultEnvelope{Success: true, Message: message, Payload: payload})
}

func fail(c *gin.Context, err error) {
	c.JSON(statusForError(err), resultEnvelope{Success: false, Message: faults.Message(err)})
}

func statusForError(err error) int {
	switch faults.KindOf(err) {
	case faults.KindValidation:
		return http.StatusBadRequest
	case faults.KindAuth:
		return http.StatusUnauthorized
	case faults.KindForbidden:
		return http.StatusForbidden
	case faults.KindNotFound:
		return http.StatusNotFound
	case faults.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userPayload struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	CreatedAt int64  `json:"created_at"`
}

type sessionPayload struct {
	User        userPayload `json:"user"`
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	TokenType   string      `json:"token_type"`
}

func makeUserPayload(user *auth.User) userPayload {
	return userPayload{ID: user.ID, Username: user.Username, CreatedAt: user.CreatedAt.Unix()}
}

func (h *httpHandler) startSession(c *gin.Context, user *auth.User, message string) {
	token, expiresIn, err := h.tokens.IssueToken(user)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Int("user_id", user.ID), zap.Error(err))
		fail(c, faults.Wrap(faults.KindInternal, "could not issue a session token", err))
		return
	}
	succeed(c, message, sessionPayload{
		User:        makeUserPayload(user),
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, faults.New(faults.KindValidation, "invalid request body"))
		return
	}
	user, err := h.credentials.Register(c.Request.Context(), request.Username, request.Password)
	if err != nil {
		fail(c, err)
		return
	}
	h.startSession(c, user, "registration successful")
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, faults.New(faults.KindValidation, "invalid request body"))
		return
	}
	user, err := h.credentials.Login(c.Request.Context(), request.Username, request.Password)
	if err != nil {
		fail(c, err)
		return
	}
	h.startSession(c, user, "login successful")
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	if err := h.credentials.Logout(); err != nil {
		fail(c, err)
		return
	}
	succeed(c, "logged out", nil)
}

func (h *httpHandler) handleCurrentUser(c *gin.Context) {
	user, err := h.credentials.CurrentUser(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if user == nil {
		fail(c, faults.New(faults.KindAuth, "not authenticated"))
		return
	}
	succeed(c, "session resolved", makeUserPayload(user))
}

type createListPayload struct {
	Name string `json:"name"`
}

func (h *httpHandler) handleLocalLists(c *gin.Context) {
	succeed(c, "lists loaded", h.local.Lists())
}

func (h *httpHandler) handleCreateList(c *gin.Context) {
	var request createListPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, faults.New(faults.KindValidation, "invalid request body"))
		return
	}
	list, err := h.local.CreateList(request.Name)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, "list created", list)
}

func (h *httpHandler) handleListItems(c *gin.Context) {
	items, err := h.local.Items(c.Query("name"), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, "items loaded", items)
}

type saveItemsPayload struct {
	Name  string           `json:"name"`
	Items []checklist.Item `json:"items"`
}

func (h *httpHandler) handleSaveItems(c *gin.Context) {
	var request saveItemsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, faults.New(faults.KindValidation, "invalid request body"))
		return
	}
	if err := h.local.SaveItems(request.Name, c.Param("id"), request.Items); err != nil {
		fail(c, err)
		return
	}
	succeed(c, "items saved", nil)
}

type shareRequestPayload struct {
	ListID    string           `json:"list_id"`
	ListName  string           `json:"list_name"`
	Items     []checklist.Item `json:"items"`
	Recipient string           `json:"recipient"`
}

type sharedListPayload struct {
	ID        int              `json:"id"`
	ListID    string           `json:"list_id"`
	ListName  string           `json:"list_name"`
	Owner     string           `json:"owner"`
	Items     []checklist.Item `json:"items"`
	CreatedAt int64            `json:"created_at"`
	UpdatedAt int64            `json:"updated_at"`
}

func (h *httpHandler) handleShare(c *gin.Context) {
	var request shareRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, faults.New(faults.KindValidation, "invalid request body"))
		return
	}
	sharedID, err := h.registry.ShareList(c.Request.Context(), request.ListID, request.ListName, request.Items, request.Recipient)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, "list shared", gin.H{"shared_list_id": sharedID})
}

func (h *httpHandler) handleFetchShared(c *gin.Context) {
	shared, err := h.fetchShared(c)
	if err != nil {
		fail(c, err)
		return
	}
	items, err := checklist.DecodeItems(shared.ListData)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, "list found", sharedListPayload{
		ID:        shared.ID,
		ListID:    shared.ListID,
		ListName:  shared.ListName,
		Owner:     shared.Owner.Username,
		Items:     items,
		CreatedAt: shared.CreatedAt.Unix(),
		UpdatedAt: shared.UpdatedAt.Unix(),
	})
}

type updateSharedPayload struct {
	Items []checklist.Item `json:"items"`
}

func (h *httpHandler) handleUpdateShared(c *gin.Context) {
	sharedID, err := parseSharedID(c)
	if err != nil {
		fail(c, err)
		return
	}
	var request updateSharedPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, faults.New(faults.KindValidation, "invalid request body"))
		return
	}
	if err := h.registry.UpdateSharedList(c.Request.Context(), sharedID, request.Items); err != nil {
		fail(c, err)
		return
	}
	succeed(c, "list updated", nil)
}

func (h *httpHandler) handleImportShared(c *gin.Context) {
	shared, err := h.fetchShared(c)
	if err != nil {
		fail(c, err)
		return
	}
	localList, err := h.registry.MaterializeToLocal(c.Request.Context(), shared)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, "list added", localList)
}

func (h *httpHandler) fetchShared(c *gin.Context) (*sharing.SharedList, error) {
	sharedID, err := parseSharedID(c)
	if err != nil {
		return nil, err
	}
	return h.registry.FetchSharedList(c.Request.Context(), sharedID)
}

func parseSharedID(c *gin.Context) (int, error) {
	sharedID, err := strconv.Atoi(c.Param("id"))
	if err != nil || sharedID <= 0 {
		return 0, faults.New(faults.KindValidation, "shared list id must be a positive number")
	}
	return sharedID, nil
}

// authorizeRequest validates the bearer token and cross-checks its subject
// against the device session, so a token outlives neither logout nor a
// switch to another account.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, resultEnvelope{Success: false, Message: "not authenticated"})
		return
	}
	userID, err := h.tokens.ValidateToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, resultEnvelope{Success: false, Message: "not authenticated"})
		return
	}
	if h.credentials.CurrentUserID() != userID {
		c.AbortWithStatusJSON(http.StatusUnauthorized, resultEnvelope{Success: false, Message: "not authenticated"})
		return
	}
	c.Set(userIDContextKey, userID)
	c.Next()
}
