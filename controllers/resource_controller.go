package controllers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"catalog/messaging"
	"catalog/models"
	"catalog/repository"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// ResourceStore is what a controller needs from the repository layer.
type ResourceStore interface {
	Create(ctx context.Context, in models.CreateInput) (*models.Resource, error)
	GetByID(ctx context.Context, id string) (*models.Resource, error)
	List(ctx context.Context, filter repository.ListFilter, page repository.Page) ([]models.Resource, error)
	ListByCategory(ctx context.Context, category string, page repository.Page) ([]models.Resource, error)
	Names(ctx context.Context) ([]models.NamedResource, error)
	Update(ctx context.Context, id string, in models.UpdateInput) (*models.Resource, error)
	UpdateStock(ctx context.Context, id string, stock int) (*models.Resource, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	Count(ctx context.Context, category string) (int64, error)
	Categories(ctx context.Context) ([]string, error)
	PriceStats(ctx context.Context, category string) (*models.PriceStats, error)
}

// ResourceController translates HTTP parameters into store calls and
// store outcomes into status codes. One instance per resource type;
// the singular/plural names only feed messages and metric labels.
type ResourceController struct {
	store     ResourceStore
	singular  string
	plural    string
	logger    *slog.Logger
	publisher messaging.Publisher
	mutations *prometheus.CounterVec
}

func NewResourceController(
	store ResourceStore,
	singular, plural string,
	logger *slog.Logger,
	publisher messaging.Publisher,
	mutations *prometheus.CounterVec,
) *ResourceController {
	return &ResourceController{
		store:     store,
		singular:  singular,
		plural:    plural,
		logger:    logger,
		publisher: publisher,
		mutations: mutations,
	}
}

func (rc *ResourceController) Create(c *gin.Context) {
	var input models.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeValidationError(c, err)
		return
	}

	created, err := rc.store.Create(c.Request.Context(), input)
	if err != nil {
		rc.writeStoreError(c, err)
		return
	}

	rc.recordMutation(c, models.EventCreated, created.ID.Hex(), created.Name)
	c.JSON(http.StatusCreated, created)
}

func (rc *ResourceController) List(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	minPrice, ok := parsePriceBound(c, "min_price")
	if !ok {
		return
	}
	maxPrice, ok := parsePriceBound(c, "max_price")
	if !ok {
		return
	}

	filter := repository.ListFilter{
		Category: c.Query("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Search:   c.Query("search"),
	}

	results, err := rc.store.List(c.Request.Context(), filter, page)
	if err != nil {
		rc.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (rc *ResourceController) ListByCategory(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	category := c.Param("category")

	results, err := rc.store.ListByCategory(c.Request.Context(), category, page)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{
				Error: fmt.Sprintf("no %s found in category: %s", rc.plural, category),
			})
			return
		}
		rc.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (rc *ResourceController) Names(c *gin.Context) {
	names, err := rc.store.Names(c.Request.Context())
	if err != nil {
		rc.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (rc *ResourceController) GetByID(c *gin.Context) {
	id := c.Param("id")

	res, err := rc.store.GetByID(c.Request.Context(), id)
	if err != nil {
		rc.writeIDError(c, err, id)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (rc *ResourceController) Update(c *gin.Context) {
	id := c.Param("id")

	var input models.UpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeValidationError(c, err)
		return
	}

	updated, err := rc.store.Update(c.Request.Context(), id, input)
	if err != nil {
		if errors.Is(err, models.ErrEmptyUpdate) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: models.ErrEmptyUpdate.Error()})
			return
		}
		rc.writeIDError(c, err, id)
		return
	}

	rc.recordMutation(c, models.EventUpdated, updated.ID.Hex(), updated.Name)
	c.JSON(http.StatusOK, updated)
}

func (rc *ResourceController) UpdateStock(c *gin.Context) {
	id := c.Param("id")

	stock, err := strconv.Atoi(c.Query("stock"))
	if err != nil || stock < 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "stock must be a non-negative integer"})
		return
	}

	updated, err := rc.store.UpdateStock(c.Request.Context(), id, stock)
	if err != nil {
		rc.writeIDError(c, err, id)
		return
	}

	rc.recordMutation(c, models.EventUpdated, updated.ID.Hex(), updated.Name)
	c.JSON(http.StatusOK, updated)
}

func (rc *ResourceController) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := rc.store.Delete(c.Request.Context(), id); err != nil {
		rc.writeIDError(c, err, id)
		return
	}

	rc.recordMutation(c, models.EventDeleted, id, "")
	c.Status(http.StatusNoContent)
}

func (rc *ResourceController) DeleteMany(c *gin.Context) {
	var ids []string
	if err := c.ShouldBindJSON(&ids); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "request body must be a JSON array of ids"})
		return
	}

	deleted, err := rc.store.DeleteMany(c.Request.Context(), ids)
	if err != nil {
		if errors.Is(err, models.ErrNoValidIDs) {
			c.JSON(http.StatusBadRequest, errorResponse{
				Error: fmt.Sprintf("no valid %s ids provided", rc.singular),
			})
			return
		}
		rc.writeStoreError(c, err)
		return
	}

	rc.mutations.WithLabelValues(rc.singular, models.EventDeleted).Add(float64(deleted))
	c.JSON(http.StatusOK, gin.H{
		"message":       fmt.Sprintf("deleted %d %s", deleted, rc.plural),
		"deleted_count": deleted,
	})
}

func (rc *ResourceController) CountStats(c *gin.Context) {
	category := c.Query("category")

	total, err := rc.store.Count(c.Request.Context(), category)
	if err != nil {
		rc.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "category": nullable(category)})
}

func (rc *ResourceController) CategoryStats(c *gin.Context) {
	categories, err := rc.store.Categories(c.Request.Context())
	if err != nil {
		rc.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories, "total": len(categories)})
}

func (rc *ResourceController) PriceStats(c *gin.Context) {
	category := c.Query("category")

	stats, err := rc.store.PriceStats(c.Request.Context(), category)
	if err != nil {
		if errors.Is(err, models.ErrNoRecords) {
			c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("no %s found", rc.plural)})
			return
		}
		rc.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"min_price": stats.MinPrice,
		"max_price": stats.MaxPrice,
		"avg_price": stats.AvgPrice,
		"total":     stats.Total,
		"category":  nullable(category),
	})
}

// recordMutation bumps the mutation counter and publishes a change
// event. Publish failures are logged, never surfaced to the caller.
func (rc *ResourceController) recordMutation(c *gin.Context, eventType, id, name string) {
	rc.mutations.WithLabelValues(rc.singular, eventType).Inc()

	event := models.Event{
		EventType: eventType,
		Resource:  rc.singular,
		ID:        id,
		Name:      name,
		Timestamp: time.Now().UTC(),
	}
	if err := rc.publisher.Publish(c.Request.Context(), event); err != nil {
		rc.logger.Error("publish event failed",
			"event_type", eventType,
			"resource", rc.singular,
			"id", id,
			"error", err,
		)
	}
}

// writeIDError handles the two outcomes shared by every by-id
// operation: malformed id and missing document.
func (rc *ResourceController) writeIDError(c *gin.Context, err error, id string) {
	switch {
	case errors.Is(err, models.ErrInvalidID):
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("invalid %s id format", rc.singular),
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{
			Error: fmt.Sprintf("%s with id %s not found", rc.singular, id),
		})
	default:
		rc.writeStoreError(c, err)
	}
}

func (rc *ResourceController) writeStoreError(c *gin.Context, err error) {
	rc.logger.Error("store operation failed",
		"resource", rc.singular,
		"path", c.Request.URL.Path,
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, errorResponse{
		Error: fmt.Sprintf("failed to access %s store", rc.singular),
	})
}

// parsePage validates skip/limit. Out-of-range values are rejected
// rather than clamped; writes the 400 itself and reports ok=false.
func parsePage(c *gin.Context) (repository.Page, bool) {
	page := repository.Page{Skip: 0, Limit: defaultLimit}

	if raw := c.Query("skip"); raw != "" {
		skip, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || skip < 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "skip must be a non-negative integer"})
			return repository.Page{}, false
		}
		page.Skip = skip
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 1 || limit > maxLimit {
			c.JSON(http.StatusBadRequest, errorResponse{
				Error: fmt.Sprintf("limit must be between 1 and %d", maxLimit),
			})
			return repository.Page{}, false
		}
		page.Limit = limit
	}

	return page, true
}

// parsePriceBound reads an optional float query parameter. Writes the
// 400 itself on malformed input and reports ok=false.
func parsePriceBound(c *gin.Context, name string) (*float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid %s", name)})
		return nil, false
	}
	return &value, true
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
