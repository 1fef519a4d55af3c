package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	leaseserrors "bankops/internal/leases/errors"
	"bankops/pkg/config"
	mongotx "bankops/pkg/db/mongo"
	"bankops/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoLeaseStore struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLeaseStore(cfg *config.Config) LeaseStore {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLeaseStore{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// Acquire upserts the lease document only when it is free, expired or already
// ours. When another session holds it the filter misses, the upsert collides on
// _id and the duplicate key error is translated to ErrAlreadyLocked.
func (r *mongoLeaseStore) Acquire(ctx context.Context, lease model.Lease, now time.Time) (*model.Lease, bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id": lease.ID,
		"$or": bson.A{
			bson.M{"holder_session_id": lease.HolderSessionID},
			bson.M{"expires_at": bson.M{"$lte": now}},
		},
	}

	stillOurs := bson.M{"$and": bson.A{
		bson.M{"$eq": bson.A{"$holder_session_id", lease.HolderSessionID}},
		bson.M{"$gt": bson.A{"$expires_at", now}},
	}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"kind":              lease.Kind,
			"resource_id":       lease.ResourceID,
			"acquired_at":       bson.M{"$cond": bson.A{stillOurs, "$acquired_at", lease.AcquiredAt}},
			"holder_session_id": lease.HolderSessionID,
			"expires_at":        lease.ExpiresAt,
		}}},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var previous model.Lease
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&previous)
	switch {
	case err == nil:
	case errors.Is(err, mongo.ErrNoDocuments):
		out := lease
		return &out, false, nil
	case mongotx.IsDuplicateKey(err):
		return nil, false, leaseserrors.ErrAlreadyLocked
	default:
		return nil, false, fmt.Errorf("failed to acquire lease %s: %w", lease.ID, err)
	}

	out := lease
	renewed := previous.HeldBy(lease.HolderSessionID) && !previous.IsExpired(now)
	if renewed {
		out.AcquiredAt = previous.AcquiredAt
	}
	return &out, renewed, nil
}

func (r *mongoLeaseStore) Release(ctx context.Context, key string, sessionID string, now time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":               key,
		"holder_session_id": sessionID,
		"expires_at":        bson.M{"$gt": now},
	})
	if err != nil {
		return false, fmt.Errorf("failed to release lease %s: %w", key, err)
	}
	if res.DeletedCount > 0 {
		return true, nil
	}

	cur, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if cur != nil && !cur.IsExpired(now) && !cur.HeldBy(sessionID) {
		return false, leaseserrors.ErrNotOwner
	}
	return false, nil
}

func (r *mongoLeaseStore) Get(ctx context.Context, key string) (*model.Lease, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var lease model.Lease
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&lease)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find lease %s: %w", key, err)
	}
	return &lease, nil
}

func (r *mongoLeaseStore) ReclaimExpired(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim expired leases: %w", err)
	}
	return int(res.DeletedCount), nil
}
