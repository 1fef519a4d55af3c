package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	orchestratorerrors "bankops/internal/orchestrator/errors"
	"bankops/pkg/config"
	mongotx "bankops/pkg/db/mongo"
	"bankops/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoSessionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSessionRepository(cfg *config.Config) SessionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSessionRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoSessionRepository) Create(ctx context.Context, s *model.Session) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *mongoSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var s model.Session
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", orchestratorerrors.ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &s, nil
}

func (r *mongoSessionRepository) Update(ctx context.Context, s *model.Session) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	expected := s.Version
	next := *s
	next.Version = expected + 1

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": s.ID, "version": expected}, &next)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": s.ID})
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", orchestratorerrors.ErrSessionNotFound, s.ID)
		}
		return orchestratorerrors.ErrVersionConflict
	}

	s.Version = next.Version
	return nil
}

func (r *mongoSessionRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*model.Session, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"state":      bson.M{"$nin": endedStates},
		"updated_at": bson.M{"$lt": cutoff},
	}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []*model.Session{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}
