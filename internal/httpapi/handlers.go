package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"telecom-rating/internal/apperr"
	"telecom-rating/internal/auth"
	"telecom-rating/internal/rating"
	"telecom-rating/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse input, call rating services, return JSON.
type Handlers struct {
	Tariffs *rating.TariffService
	Rates   *rating.RateService
	Groups  *rating.GroupService
	Lookup  *rating.LookupService
}

// writeError renders err through the apperr taxonomy. Internal details are
// logged, never returned.
func writeError(c *gin.Context, err error) {
	e := apperr.As(err)
	if e.Kind == apperr.KindInternal {
		logger.FromGin(c).Error("request failed", "err", err)
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(e.Kind.HTTPStatus(), gin.H{"error": e.Code, "message": e.Message})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, apperr.Validation("invalid_json", "request body is not valid JSON"))
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, apperr.Validation("invalid_json", "request body is not valid JSON"))
		return false
	}
	return true
}

// actor returns the authenticated caller. Routes are mounted behind
// auth.RequireAccessToken, so a missing identity is an internal wiring error.
func actor(c *gin.Context) (auth.Info, bool) {
	info, err := auth.FromContext(c.Request.Context())
	if err != nil {
		writeError(c, apperr.Internal(err))
		return auth.Info{}, false
	}
	return info, true
}

func groupID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, apperr.Validation("id_invalid", "id must be a positive integer"))
		return 0, false
	}
	return id, true
}

// --- tariffs ---

func (h Handlers) ListTariffs(c *gin.Context) {
	var f rating.TariffFilter
	if !bindOptionalJSON(c, &f) {
		return
	}
	page, err := h.Tariffs.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetTariff includes rates unless includeRates=false.
func (h Handlers) GetTariff(c *gin.Context) {
	include := c.DefaultQuery("includeRates", "true") != "false"
	t, err := h.Tariffs.GetByGid(c.Request.Context(), c.Param("gid"), include)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h Handlers) CreateTariff(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req rating.TariffRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.Tariffs.Create(c.Request.Context(), who, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h Handlers) UpdateTariff(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req rating.TariffRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.Tariffs.Update(c.Request.Context(), who, c.Param("gid"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h Handlers) DeleteTariff(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	if err := h.Tariffs.Delete(c.Request.Context(), who, c.Param("gid")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- rates ---

func (h Handlers) ListRates(c *gin.Context) {
	var f rating.RateFilter
	if !bindOptionalJSON(c, &f) {
		return
	}
	page, err := h.Rates.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h Handlers) GetRate(c *gin.Context) {
	r, err := h.Rates.GetByGid(c.Request.Context(), c.Param("gid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h Handlers) CreateRate(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req rating.RateRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.Rates.Create(c.Request.Context(), who, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h Handlers) UpdateRate(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req rating.RateRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.Rates.Update(c.Request.Context(), who, c.Param("gid"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h Handlers) DeleteRate(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	if err := h.Rates.Delete(c.Request.Context(), who, c.Param("gid")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- destination groups ---

func (h Handlers) ListGroups(c *gin.Context) {
	groups, err := h.Groups.List(c.Request.Context(), c.Query("activeOnly") == "true")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h Handlers) GetGroup(c *gin.Context) {
	id, ok := groupID(c)
	if !ok {
		return
	}
	g, err := h.Groups.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h Handlers) CreateGroup(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req rating.DestinationGroupRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.Groups.Create(c.Request.Context(), who, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h Handlers) UpdateGroup(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := groupID(c)
	if !ok {
		return
	}
	var req rating.DestinationGroupRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.Groups.Update(c.Request.Context(), who, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h Handlers) DeleteGroup(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := groupID(c)
	if !ok {
		return
	}
	if err := h.Groups.Delete(c.Request.Context(), who, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- lookup ---

// FindRate answers GET /api/lookup?tariffGid=&phoneNumber=.
func (h Handlers) FindRate(c *gin.Context) {
	m, err := h.Lookup.FindRate(c.Request.Context(), c.Query("tariffGid"), phoneNumberParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
