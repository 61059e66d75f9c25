// Package mongo implements the Treasury store on MongoDB via the official
// driver. Natural keys (the pool singletons, beneficiary, account) map to
// document IDs, so writes are upserts.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	treasury "github.com/xraph/treasury"
	"github.com/xraph/treasury/receipt"
	"github.com/xraph/treasury/staking"
	treasurystore "github.com/xraph/treasury/store"
	"github.com/xraph/treasury/vesting"
)

// Collection name constants.
const (
	colVestingPool = "treasury_vesting_pool"
	colAllocations = "treasury_allocations"
	colStakingPool = "treasury_staking_pool"
	colPositions   = "treasury_positions"
	colReceipts    = "treasury_receipts"
)

// compile-time interface check
var _ treasurystore.Store = (*Store)(nil)

// Store implements store.Store on a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New wraps an already-connected client. Close disconnects the client.
func New(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

// Open connects to the deployment at uri and uses the named database.
func Open(uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("treasury/mongo: connect: %w", err)
	}
	return New(client, database), nil
}

// Database returns the underlying database handle for direct access.
func (s *Store) Database() *mongo.Database { return s.db }

// Migrate creates indexes for all treasury collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colAllocations: {
			{Keys: bson.D{{Key: "position", Value: 1}}},
		},
		colReceipts: {
			{Keys: bson.D{{Key: "op", Value: 1}}},
			{Keys: bson.D{{Key: "account", Value: 1}}},
		},
	}
	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Join(treasury.ErrMigrationFailed,
				fmt.Errorf("treasury/mongo: migrate %s indexes: %w", col, err))
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==================== Vesting Store ====================

func (s *Store) GetVestingPool(ctx context.Context) (*vesting.Pool, error) {
	var m vestingPoolModel
	err := s.db.Collection(colVestingPool).
		FindOne(ctx, bson.M{"_id": vesting.PoolKey}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, treasury.ErrNotFound
		}
		return nil, fmt.Errorf("treasury/mongo: get vesting pool: %w", err)
	}
	return fromVestingPoolModel(&m)
}

func (s *Store) PutVestingPool(ctx context.Context, p *vesting.Pool) error {
	m := toVestingPoolModel(p)
	_, err := s.db.Collection(colVestingPool).
		ReplaceOne(ctx, bson.M{"_id": m.Key}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("treasury/mongo: put vesting pool: %w", err)
	}
	return nil
}

func (s *Store) GetAllocation(ctx context.Context, beneficiary string) (*vesting.Allocation, error) {
	var m allocationModel
	err := s.db.Collection(colAllocations).
		FindOne(ctx, bson.M{"_id": beneficiary}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, treasury.ErrNoAllocation
		}
		return nil, fmt.Errorf("treasury/mongo: get allocation: %w", err)
	}
	return fromAllocationModel(&m)
}

func (s *Store) PutAllocation(ctx context.Context, a *vesting.Allocation) error {
	m := toAllocationModel(a)
	_, err := s.db.Collection(colAllocations).
		ReplaceOne(ctx, bson.M{"_id": m.Beneficiary}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("treasury/mongo: put allocation: %w", err)
	}
	return nil
}

func (s *Store) PutAllocations(ctx context.Context, allocs []*vesting.Allocation) error {
	if len(allocs) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, len(allocs))
	for i, a := range allocs {
		m := toAllocationModel(a)
		writes[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": m.Beneficiary}).
			SetReplacement(m).
			SetUpsert(true)
	}
	_, err := s.db.Collection(colAllocations).
		BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("treasury/mongo: put allocations: %w", err)
	}
	return nil
}

func (s *Store) ListAllocations(ctx context.Context) ([]*vesting.Allocation, error) {
	cur, err := s.db.Collection(colAllocations).
		Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("treasury/mongo: list allocations: %w", err)
	}
	var models []allocationModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("treasury/mongo: list allocations: %w", err)
	}

	result := make([]*vesting.Allocation, len(models))
	for i := range models {
		a, err := fromAllocationModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

// ==================== Staking Store ====================

func (s *Store) GetStakingPool(ctx context.Context) (*staking.Pool, error) {
	var m stakingPoolModel
	err := s.db.Collection(colStakingPool).
		FindOne(ctx, bson.M{"_id": staking.PoolKey}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, treasury.ErrNotFound
		}
		return nil, fmt.Errorf("treasury/mongo: get staking pool: %w", err)
	}
	return fromStakingPoolModel(&m)
}

func (s *Store) PutStakingPool(ctx context.Context, p *staking.Pool) error {
	m := toStakingPoolModel(p)
	_, err := s.db.Collection(colStakingPool).
		ReplaceOne(ctx, bson.M{"_id": m.Key}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("treasury/mongo: put staking pool: %w", err)
	}
	return nil
}

func (s *Store) GetPosition(ctx context.Context, account string) (*staking.Position, error) {
	var m positionModel
	err := s.db.Collection(colPositions).
		FindOne(ctx, bson.M{"_id": account}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, treasury.ErrNoPosition
		}
		return nil, fmt.Errorf("treasury/mongo: get position: %w", err)
	}
	return fromPositionModel(&m)
}

func (s *Store) PutPosition(ctx context.Context, p *staking.Position) error {
	m := toPositionModel(p)
	_, err := s.db.Collection(colPositions).
		ReplaceOne(ctx, bson.M{"_id": m.Account}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("treasury/mongo: put position: %w", err)
	}
	return nil
}

func (s *Store) DeletePosition(ctx context.Context, account string) error {
	res, err := s.db.Collection(colPositions).
		DeleteOne(ctx, bson.M{"_id": account})
	if err != nil {
		return fmt.Errorf("treasury/mongo: delete position: %w", err)
	}
	if res.DeletedCount == 0 {
		return treasury.ErrNoPosition
	}
	return nil
}

func (s *Store) ListPositions(ctx context.Context) ([]*staking.Position, error) {
	cur, err := s.db.Collection(colPositions).
		Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("treasury/mongo: list positions: %w", err)
	}
	var models []positionModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("treasury/mongo: list positions: %w", err)
	}

	result := make([]*staking.Position, len(models))
	for i := range models {
		p, err := fromPositionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Receipt Store ====================

func (s *Store) AppendReceipt(ctx context.Context, r *receipt.Receipt) error {
	_, err := s.db.Collection(colReceipts).InsertOne(ctx, toReceiptModel(r))
	if err != nil {
		return fmt.Errorf("treasury/mongo: append receipt: %w", err)
	}
	return nil
}

func (s *Store) ListReceipts(ctx context.Context, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	filter := bson.M{}
	if opts.Op != "" {
		filter["op"] = string(opts.Op)
	}
	if opts.Account != "" {
		filter["account"] = opts.Account
	}

	// Receipt IDs carry a UUIDv7 suffix, so lexical _id order is append order.
	q := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colReceipts).Find(ctx, filter, q)
	if err != nil {
		return nil, fmt.Errorf("treasury/mongo: list receipts: %w", err)
	}
	var models []receiptModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("treasury/mongo: list receipts: %w", err)
	}

	result := make([]*receipt.Receipt, len(models))
	for i := range models {
		rec, err := fromReceiptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = rec
	}
	return result, nil
}

// ==================== Helpers ====================

// isNoDocuments checks for the driver's no-documents sentinel.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
