package attendance

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RecordStore is the persistence boundary the core writes through.
type RecordStore interface {
	// Find returns the record for the key, or nil when absent.
	Find(ctx context.Context, studentID int64, weekID int) (*Record, error)
	// Upsert replaces or inserts the full record for its key.
	Upsert(ctx context.Context, rec Record) error
	// ScanExpired returns PRESENT records whose deadline lapsed before now
	// and that have not been auto-processed yet.
	ScanExpired(ctx context.Context, now time.Time) ([]Record, error)
	// MarkAutoAbsent applies the terminal auto-absent transition, guarded on
	// the deadline still matching the one read. Returns false when the guard
	// lost to a concurrent check-in.
	MarkAutoAbsent(ctx context.Context, rec Record, now time.Time, note string) (bool, error)
}

// StudentDirectory resolves whether a student exists; the directory itself
// is owned by the student package.
type StudentDirectory interface {
	Exists(ctx context.Context, studentID int64) (bool, error)
}

// MongoStore persists attendance records and weeks in MongoDB.
type MongoStore struct {
	records *mongo.Collection
	weeks   *mongo.Collection
	timeout time.Duration
}

// NewMongoStore creates a store over the attendance and weeks collections.
func NewMongoStore(db *mongo.Database, timeout time.Duration) *MongoStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MongoStore{
		records: db.Collection("attendance"),
		weeks:   db.Collection("weeks"),
		timeout: timeout,
	}
}

// EnsureIndexes creates the unique (student_id, week_id) index the upsert
// contract depends on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.records.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "week_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return Unavailable("create attendance index", err)
	}
	return nil
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func key(studentID int64, weekID int) bson.M {
	return bson.M{"student_id": studentID, "week_id": weekID}
}

// Find returns the record for (studentID, weekID), nil when absent.
func (s *MongoStore) Find(ctx context.Context, studentID int64, weekID int) (*Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var rec Record
	err := s.records.FindOne(ctx, key(studentID, weekID)).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, Unavailable("find attendance record", err)
	}
	return &rec, nil
}

// Upsert replaces the document for the record's key, inserting when missing.
func (s *MongoStore) Upsert(ctx context.Context, rec Record) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.records.ReplaceOne(ctx, key(rec.StudentID, rec.WeekID), rec, options.Replace().SetUpsert(true))
	if err != nil {
		return Unavailable("upsert attendance record", err)
	}
	return nil
}

// ScanExpired returns sweep candidates: PRESENT, unprocessed, deadline < now.
func (s *MongoStore) ScanExpired(ctx context.Context, now time.Time) ([]Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.records.Find(ctx, bson.M{
		"status":              StatusPresent,
		"auto_absent_applied": false,
		"deadline":            bson.M{"$lt": now},
	})
	if err != nil {
		return nil, Unavailable("scan expired records", err)
	}
	var recs []Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, Unavailable("decode expired records", err)
	}
	return recs, nil
}

// MarkAutoAbsent transitions rec to ABSENT with auto_absent_applied set,
// only while the stored deadline still equals the one the sweeper read.
// A lost guard means a fresh check-in superseded the expiry.
func (s *MongoStore) MarkAutoAbsent(ctx context.Context, rec Record, now time.Time, note string) (bool, error) {
	if rec.Deadline == nil {
		return false, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	filter := key(rec.StudentID, rec.WeekID)
	filter["auto_absent_applied"] = false
	filter["deadline"] = *rec.Deadline
	res, err := s.records.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{
			"status":              StatusAbsent,
			"auto_absent_applied": true,
			"last_updated":        now,
			"notes":               appendNote(rec.Notes, now, note),
		},
		"$unset": bson.M{"deadline": ""},
	})
	if err != nil {
		return false, Unavailable("apply auto-absent", err)
	}
	return res.ModifiedCount > 0, nil
}

// ListByWeek returns all records for a week ordered by student id.
func (s *MongoStore) ListByWeek(ctx context.Context, weekID int) ([]Record, error) {
	return s.list(ctx, bson.M{"week_id": weekID}, bson.D{{Key: "student_id", Value: 1}})
}

// ListByStudent returns all records for a student ordered by week.
func (s *MongoStore) ListByStudent(ctx context.Context, studentID int64) ([]Record, error) {
	return s.list(ctx, bson.M{"student_id": studentID}, bson.D{{Key: "week_id", Value: 1}})
}

// ListAll returns every attendance record.
func (s *MongoStore) ListAll(ctx context.Context) ([]Record, error) {
	return s.list(ctx, bson.M{}, bson.D{{Key: "week_id", Value: 1}, {Key: "student_id", Value: 1}})
}

func (s *MongoStore) list(ctx context.Context, filter bson.M, sort bson.D) ([]Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.records.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, Unavailable("list attendance records", err)
	}
	var recs []Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, Unavailable("decode attendance records", err)
	}
	return recs, nil
}

// CountRecords returns the total number of attendance documents.
func (s *MongoStore) CountRecords(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.records.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, Unavailable("count attendance records", err)
	}
	return n, nil
}

// DeleteByStudent removes all records for a student. Used by the student
// CRUD cascade, never by the core.
func (s *MongoStore) DeleteByStudent(ctx context.Context, studentID int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.records.DeleteMany(ctx, bson.M{"student_id": studentID}); err != nil {
		return Unavailable("delete attendance records", err)
	}
	return nil
}

// ReplaceAllRecords wipes the collection and inserts the given records.
// Seeding only.
func (s *MongoStore) ReplaceAllRecords(ctx context.Context, recs []Record) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.records.DeleteMany(ctx, bson.M{}); err != nil {
		return Unavailable("clear attendance records", err)
	}
	if len(recs) == 0 {
		return nil
	}
	docs := make([]any, len(recs))
	for i, r := range recs {
		docs[i] = r
	}
	if _, err := s.records.InsertMany(ctx, docs); err != nil {
		return Unavailable("seed attendance records", err)
	}
	return nil
}
