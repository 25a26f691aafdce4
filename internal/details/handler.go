package details

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/patientdetails/internal/domain/account"
	"github.com/ehr/patientdetails/internal/platform/auth"
	"github.com/ehr/patientdetails/internal/platform/cache"
)

// CacheHeader reports whether a page came from the cache.
const CacheHeader = "X-Cache"

// UserGetter loads a single user with role and patient.
type UserGetter interface {
	GetUser(ctx context.Context, id int64) (*account.User, error)
}

type Handler struct {
	users    UserGetter
	renderer *Renderer
	cache    cache.Store
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewHandler wires the page handlers. store may be nil to disable caching.
func NewHandler(users UserGetter, renderer *Renderer, store cache.Store, ttl time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		users:    users,
		renderer: renderer,
		cache:    store,
		ttl:      ttl,
		logger:   logger,
	}
}

// RegisterPages mounts the HTML page on g.
func (h *Handler) RegisterPages(g *echo.Group) {
	g.GET("/users/:id", h.ShowPage, auth.RequireRole(account.ReadRoles...))
}

// RegisterRoutes mounts the JSON view model and the preview endpoint on api.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(account.ReadRoles...))
	readGroup.GET("/users/:id/details", h.GetDetails)
	readGroup.POST("/preview", h.Preview)
}

func (h *Handler) ShowPage(c echo.Context) error {
	id, err := account.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	key := cache.DetailsKey(id)
	setNoStore(c)

	if body, ok := h.cached(ctx, key); ok {
		c.Response().Header().Set(CacheHeader, "HIT")
		return c.HTMLBlob(http.StatusOK, body)
	}

	u, err := h.users.GetUser(ctx, id)
	if err != nil {
		return account.HTTPError(err)
	}
	body, err := h.renderer.RenderUser(*u)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.store(ctx, key, body)

	c.Response().Header().Set(CacheHeader, "MISS")
	return c.HTMLBlob(http.StatusOK, body)
}

func (h *Handler) GetDetails(c echo.Context) error {
	id, err := account.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	u, err := h.users.GetUser(c.Request().Context(), id)
	if err != nil {
		return account.HTTPError(err)
	}
	return c.JSON(http.StatusOK, Build(*u))
}

// Preview renders a posted user document without touching storage.
func (h *Handler) Preview(c echo.Context) error {
	var u account.User
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := u.Validate(); err != nil {
		if errors.Is(err, account.ErrInvalidUser) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	body, err := h.renderer.RenderUser(u)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	setNoStore(c)
	return c.HTMLBlob(http.StatusOK, body)
}

func (h *Handler) cached(ctx context.Context, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	body, ok, err := h.cache.Get(ctx, key)
	if err != nil {
		h.logger.Warn().Err(err).Str("key", key).Msg("page cache read failed")
		return nil, false
	}
	return body, ok
}

func (h *Handler) store(ctx context.Context, key string, body []byte) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, key, body, h.ttl); err != nil {
		h.logger.Warn().Err(err).Str("key", key).Msg("page cache write failed")
	}
}

// Pages carry patient data and must not be kept by shared caches.
func setNoStore(c echo.Context) {
	c.Response().Header().Set("Cache-Control", "private, no-store")
}
