package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"catalog/models"
)

// ListFilter narrows a listing. Zero values mean "no constraint";
// price bounds are pointers so 0 remains a usable bound.
type ListFilter struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Search   string
}

// Page is validated pagination. Limit is expected to be in [1,100]
// and Skip non-negative; the handlers enforce that before calling.
type Page struct {
	Skip  int64
	Limit int64
}

// ResourceRepository runs all collection operations for one resource
// type. Products and books each get their own instance over their own
// collection; the behavior is identical.
type ResourceRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// New wraps a collection. timeout bounds each store operation on top
// of whatever deadline the request context already carries; zero
// disables the per-operation bound.
func New(coll *mongo.Collection, timeout time.Duration) *ResourceRepository {
	return &ResourceRepository{coll: coll, timeout: timeout}
}

func (r *ResourceRepository) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Create stamps both timestamps with the same instant and inserts.
func (r *ResourceRepository) Create(ctx context.Context, in models.CreateInput) (*models.Resource, error) {
	now := time.Now().UTC()
	res := models.Resource{
		ID:          primitive.NewObjectID(),
		Name:        in.Name,
		Description: *in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Stock:       *in.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	opCtx, cancel := r.opContext(ctx)
	defer cancel()
	if _, err := r.coll.InsertOne(opCtx, res); err != nil {
		return nil, fmt.Errorf("insert resource: %w", err)
	}
	return &res, nil
}

// GetByID validates the id syntax before touching the store, so a
// malformed id never costs a round-trip and is distinguishable from
// a missing document.
func (r *ResourceRepository) GetByID(ctx context.Context, id string) (*models.Resource, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	var res models.Resource
	if err := r.coll.FindOne(opCtx, bson.M{"_id": objID}).Decode(&res); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("find resource: %w", err)
	}
	return &res, nil
}

// List returns matching resources newest-first. Zero matches is a
// valid, empty result.
func (r *ResourceRepository) List(ctx context.Context, filter ListFilter, page Page) ([]models.Resource, error) {
	opts := options.Find().
		SetSkip(page.Skip).
		SetLimit(page.Limit).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	cursor, err := r.coll.Find(opCtx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}

	results := []models.Resource{}
	if err := cursor.All(opCtx, &results); err != nil {
		return nil, fmt.Errorf("decode resources: %w", err)
	}
	return results, nil
}

// ListByCategory lists one exact category. Unlike List, zero matches
// is reported as ErrNotFound: an unknown category is almost always a
// typo and callers want it flagged.
func (r *ResourceRepository) ListByCategory(ctx context.Context, category string, page Page) ([]models.Resource, error) {
	opts := options.Find().
		SetSkip(page.Skip).
		SetLimit(page.Limit).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	cursor, err := r.coll.Find(opCtx, bson.M{"category": category}, opts)
	if err != nil {
		return nil, fmt.Errorf("list by category: %w", err)
	}

	results := []models.Resource{}
	if err := cursor.All(opCtx, &results); err != nil {
		return nil, fmt.Errorf("decode resources: %w", err)
	}
	if len(results) == 0 {
		return nil, models.ErrNotFound
	}
	return results, nil
}

// Names returns the names-only projection, newest-first.
func (r *ResourceRepository) Names(ctx context.Context) ([]models.NamedResource, error) {
	opts := options.Find().
		SetProjection(bson.M{"name": 1}).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	cursor, err := r.coll.Find(opCtx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list names: %w", err)
	}

	results := []models.NamedResource{}
	if err := cursor.All(opCtx, &results); err != nil {
		return nil, fmt.Errorf("decode names: %w", err)
	}
	return results, nil
}

// Update applies only the supplied fields and refreshes updated_at in
// one atomic FindOneAndUpdate, returning the post-update document.
// A missing document wins over an empty input: updating a document
// that does not exist is ErrNotFound even with nothing to apply.
func (r *ResourceRepository) Update(ctx context.Context, id string, in models.UpdateInput) (*models.Resource, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if !in.HasChanges() {
		opCtx, cancel := r.opContext(ctx)
		defer cancel()
		err := r.coll.FindOne(opCtx, bson.M{"_id": objID}).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("find resource: %w", err)
		}
		return nil, models.ErrEmptyUpdate
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if in.Name != nil {
		set["name"] = *in.Name
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Price != nil {
		set["price"] = *in.Price
	}
	if in.Category != nil {
		set["category"] = *in.Category
	}
	if in.Stock != nil {
		set["stock"] = *in.Stock
	}

	return r.findOneAndSet(ctx, objID, set)
}

// UpdateStock sets only the stock field. The handler guarantees
// stock >= 0.
func (r *ResourceRepository) UpdateStock(ctx context.Context, id string, stock int) (*models.Resource, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOneAndSet(ctx, objID, bson.M{
		"stock":      stock,
		"updated_at": time.Now().UTC(),
	})
}

func (r *ResourceRepository) findOneAndSet(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Resource, error) {
	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var res models.Resource
	err := r.coll.FindOneAndUpdate(opCtx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("update resource: %w", err)
	}
	return &res, nil
}

// Delete removes one document; deleting an id that matches nothing is
// ErrNotFound.
func (r *ResourceRepository) Delete(ctx context.Context, id string) error {
	objID, err := parseID(id)
	if err != nil {
		return err
	}

	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	result, err := r.coll.DeleteOne(opCtx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteMany removes every document whose id appears in ids.
// Malformed ids are dropped silently; the call fails only when none
// survive the filter. The returned count is what was actually
// deleted, which may be less than requested.
func (r *ResourceRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	validIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if objID, err := primitive.ObjectIDFromHex(id); err == nil {
			validIDs = append(validIDs, objID)
		}
	}
	if len(validIDs) == 0 {
		return 0, models.ErrNoValidIDs
	}

	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	result, err := r.coll.DeleteMany(opCtx, bson.M{"_id": bson.M{"$in": validIDs}})
	if err != nil {
		return 0, fmt.Errorf("delete resources: %w", err)
	}
	return result.DeletedCount, nil
}

// Count counts documents, optionally within one category.
func (r *ResourceRepository) Count(ctx context.Context, category string) (int64, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}

	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	count, err := r.coll.CountDocuments(opCtx, filter)
	if err != nil {
		return 0, fmt.Errorf("count resources: %w", err)
	}
	return count, nil
}

// Categories returns the distinct category labels in use.
func (r *ResourceRepository) Categories(ctx context.Context) ([]string, error) {
	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	values, err := r.coll.Distinct(opCtx, "category", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}

	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			categories = append(categories, s)
		}
	}
	return categories, nil
}

// PriceStats aggregates min, max and mean price, optionally within
// one category. An empty matching set is ErrNoRecords rather than
// zero-valued statistics, which would be misleading.
func (r *ResourceRepository) PriceStats(ctx context.Context, category string) (*models.PriceStats, error) {
	match := bson.M{}
	if category != "" {
		match["category"] = category
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"min_price": bson.M{"$min": "$price"},
			"max_price": bson.M{"$max": "$price"},
			"avg_price": bson.M{"$avg": "$price"},
			"total":     bson.M{"$sum": 1},
		}}},
	}

	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	cursor, err := r.coll.Aggregate(opCtx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate prices: %w", err)
	}

	var results []models.PriceStats
	if err := cursor.All(opCtx, &results); err != nil {
		return nil, fmt.Errorf("decode price stats: %w", err)
	}
	if len(results) == 0 {
		return nil, models.ErrNoRecords
	}

	stats := results[0]
	stats.AvgPrice = math.Round(stats.AvgPrice*100) / 100
	return &stats, nil
}

func parseID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, models.ErrInvalidID
	}
	return objID, nil
}

// buildFilter translates a ListFilter into a mongo query document.
// Category, price range and search combine with AND; the search term
// matches name or description, case-insensitively.
func buildFilter(f ListFilter) bson.M {
	query := bson.M{}

	if f.Category != "" {
		query["category"] = f.Category
	}

	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		query["price"] = price
	}

	if f.Search != "" {
		regex := primitive.Regex{Pattern: f.Search, Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": regex},
			bson.M{"description": regex},
		}
	}

	return query
}
