package repository

import (
	"context"
	"errors"
	"fmt"

	ledgererrors "bankops/internal/ledger/errors"
	"bankops/pkg/config"
	mongotx "bankops/pkg/db/mongo"
	"bankops/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoLedgerRepository struct {
	cfg           *config.Config
	transactions  *mongo.Collection
	accounts      *mongo.Collection
	confirmations *mongo.Collection
	txManager     mongotx.TransactionManager
}

func NewMongoLedgerRepository(cfg *config.Config) LedgerRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLedgerRepository{
		cfg:           cfg,
		transactions:  db.Collection(TransactionsCollection),
		accounts:      db.Collection(AccountsCollection),
		confirmations: db.Collection(ConfirmationsCollection),
		txManager:     mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoLedgerRepository) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.transactions.InsertOne(ctx, tx); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *mongoLedgerRepository) FindTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var tx model.Transaction
	err := r.transactions.FindOne(ctx, bson.M{"_id": id}).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ledgererrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &tx, nil
}

func (r *mongoLedgerRepository) FindByStatus(ctx context.Context, status model.TransactionStatus, limit int, offset int64) ([]*model.Transaction, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.transactions.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer cursor.Close(ctx)

	txs := []*model.Transaction{}
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return txs, nil
}

func (r *mongoLedgerRepository) CountByStatus(ctx context.Context, status model.TransactionStatus) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.transactions.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func updateDoc(update StatusUpdate, applied bool) bson.M {
	set := bson.M{
		"status":     update.Status,
		"updated_at": update.UpdatedAt,
	}
	if update.Amount != 0 {
		set["amount"] = update.Amount
	}
	if update.ScreeningReason != "" {
		set["screening_reason"] = update.ScreeningReason
	}
	if update.ReviewerNote != "" {
		set["reviewer_note"] = update.ReviewerNote
	}
	if update.DecidedAt != nil {
		set["decided_at"] = *update.DecidedAt
	}
	if applied {
		set["effect_applied"] = true
	}
	return bson.M{"$set": set}
}

// casStatus performs the status compare-and-set and tells a missing transaction
// apart from one in another status.
func (r *mongoLedgerRepository) casStatus(ctx context.Context, id string, filter bson.M, update bson.M) (*model.Transaction, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var tx model.Transaction
	err := r.transactions.FindOneAndUpdate(ctx, filter, update, opts).Decode(&tx)
	if err == nil {
		return &tx, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	current, findErr := r.FindTransaction(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	return nil, fmt.Errorf("%w: %s is %s", ledgererrors.ErrStatusConflict, id, current.Status)
}

func (r *mongoLedgerRepository) Transition(ctx context.Context, id string, from []model.TransactionStatus, update StatusUpdate) (*model.Transaction, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	return r.casStatus(ctx, id, filter, updateDoc(update, false))
}

func (r *mongoLedgerRepository) Commit(ctx context.Context, id string, from []model.TransactionStatus, update StatusUpdate) (*model.Transaction, error) {
	var committed *model.Transaction

	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		filter := bson.M{
			"_id":            id,
			"status":         bson.M{"$in": from},
			"effect_applied": false,
		}
		tx, err := r.casStatus(sessCtx, id, filter, updateDoc(update, true))
		if err != nil {
			return err
		}

		for _, e := range tx.Effects() {
			accFilter := bson.M{"_id": e.AccountID}
			if e.Delta < 0 {
				accFilter["balance"] = bson.M{"$gte": -e.Delta}
			}
			res, err := r.accounts.UpdateOne(sessCtx, accFilter, bson.M{
				"$inc": bson.M{"balance": e.Delta},
				"$set": bson.M{"updated_at": update.UpdatedAt},
			})
			if err != nil {
				return fmt.Errorf("failed to apply balance effect on %s: %w", e.AccountID, err)
			}
			if res.MatchedCount == 0 {
				if _, err := r.FindAccount(sessCtx, e.AccountID); err != nil {
					return err
				}
				return ledgererrors.ErrInsufficientFunds
			}
		}

		committed = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (r *mongoLedgerRepository) CreateAccount(ctx context.Context, account *model.Account) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.accounts.InsertOne(ctx, account); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *mongoLedgerRepository) findAccount(ctx context.Context, filter bson.M, ref string) (*model.Account, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var acc model.Account
	err := r.accounts.FindOne(ctx, filter).Decode(&acc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ledgererrors.ErrAccountNotFound, ref)
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &acc, nil
}

func (r *mongoLedgerRepository) FindAccount(ctx context.Context, id string) (*model.Account, error) {
	return r.findAccount(ctx, bson.M{"_id": id}, id)
}

func (r *mongoLedgerRepository) FindAccountByNumber(ctx context.Context, number string) (*model.Account, error) {
	return r.findAccount(ctx, bson.M{"number": number}, "number "+number)
}

func (r *mongoLedgerRepository) InsertConfirmation(ctx context.Context, c *model.Confirmation) (*model.Confirmation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.confirmations.InsertOne(ctx, c); err != nil {
		if mongotx.IsDuplicateKey(err) {
			return r.FindConfirmation(ctx, c.TransactionID)
		}
		return nil, fmt.Errorf("failed to store confirmation: %w", err)
	}
	stored := *c
	return &stored, nil
}

func (r *mongoLedgerRepository) FindConfirmation(ctx context.Context, transactionID string) (*model.Confirmation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var c model.Confirmation
	err := r.confirmations.FindOne(ctx, bson.M{"_id": transactionID}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ledgererrors.ErrConfirmationNotFound, transactionID)
		}
		return nil, fmt.Errorf("failed to find confirmation: %w", err)
	}
	return &c, nil
}
