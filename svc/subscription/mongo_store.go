package subscription

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	mongox "github.com/dmitrymomot/memkeep/pkg/mongo"
)

// MongoStore keeps one document per user keyed by _id = user id.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore panics if coll is nil.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	if coll == nil {
		panic("subscription: mongo collection cannot be nil")
	}
	return &MongoStore{coll: coll}
}

// EnsureIndexes creates the index used by the expiry queries.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tier", Value: 1}, {Key: "status", Value: 1}, {Key: "end_date", Value: 1}},
		Options: options.Index().SetName("tier_status_end_date"),
	})
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, userID string) (*Record, error) {
	var rec Record
	if err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&rec); err != nil {
		if mongox.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	rec.normalize()
	return &rec, nil
}

// CreateDefault reads first so an existing user costs no write. A racing
// insert loses on the unique _id and falls back to reading the winner.
func (s *MongoStore) CreateDefault(ctx context.Context, userID string, now time.Time) (*Record, error) {
	rec, err := s.Get(ctx, userID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	fresh := NewDefaultRecord(userID, now)
	if _, err := s.coll.InsertOne(ctx, fresh); err != nil {
		if mongox.IsDuplicateKey(err) {
			return s.Get(ctx, userID)
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return &fresh, nil
}

func (s *MongoStore) Update(ctx context.Context, userID string, patch Patch) error {
	update := patchDocument(patch)
	if len(update) == 0 {
		return nil
	}

	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: userID}}, update)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) BulkUpdateAll(ctx context.Context, patch Patch) (int64, error) {
	update := patchDocument(patch)
	if len(update) == 0 {
		return 0, nil
	}

	res, err := s.coll.UpdateMany(ctx, bson.D{}, update)
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return res.MatchedCount, nil
}

func (s *MongoStore) Query(ctx context.Context, filter Filter, page, pageSize int) ([]Record, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	query := filterDocument(filter)

	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, errors.Join(ErrStoreUnavailable, err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cur, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, errors.Join(ErrStoreUnavailable, err)
	}

	records := make([]Record, 0, pageSize)
	if err := cur.All(ctx, &records); err != nil {
		return nil, 0, errors.Join(ErrStoreUnavailable, err)
	}
	for i := range records {
		records[i].normalize()
	}
	return records, total, nil
}

func filterDocument(f Filter) bson.D {
	query := bson.D{}
	if f.Tier != "" {
		query = append(query, bson.E{Key: "tier", Value: f.Tier})
	}
	if f.Status != "" {
		query = append(query, bson.E{Key: "status", Value: f.Status})
	}
	if f.EndDateUntil != nil {
		query = append(query, bson.E{Key: "end_date", Value: bson.D{{Key: "$lte", Value: f.EndDateUntil.UTC()}}})
	}
	return query
}

func patchDocument(p Patch) bson.D {
	set := bson.D{}
	add := func(key string, value any) {
		set = append(set, bson.E{Key: key, Value: value})
	}

	if p.Tier != nil {
		add("tier", *p.Tier)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.StartDate != nil {
		add("start_date", p.StartDate.UTC())
	}
	if p.ClearEndDate {
		add("end_date", nil)
	} else if p.EndDate != nil {
		add("end_date", p.EndDate.UTC())
	}
	if p.TotalMemoriesSaved != nil {
		add("total_memories_saved", *p.TotalMemoriesSaved)
	}
	if p.MonthlySummaryPagesUsed != nil {
		add("monthly_summary_pages_used", *p.MonthlySummaryPagesUsed)
	}
	if p.MonthlyResetDate != nil {
		add("monthly_reset_date", p.MonthlyResetDate.UTC())
	}
	if p.GraceMemoriesUsed != nil {
		add("grace_memories_used", *p.GraceMemoriesUsed)
	}
	if p.GraceSummaryPagesUsed != nil {
		add("grace_summary_pages_used", *p.GraceSummaryPagesUsed)
	}
	if p.ProHistory != nil {
		add("pro_history", *p.ProHistory)
	}
	if p.UpdatedAt != nil {
		add("updated_at", p.UpdatedAt.UTC())
	}

	if len(set) == 0 {
		return nil
	}
	return bson.D{{Key: "$set", Value: set}}
}
