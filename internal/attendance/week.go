package attendance

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Week is one entry of the fixed-length term calendar.
type Week struct {
	WeekID    int    `bson:"week_id" json:"week_id"`
	WeekName  string `bson:"week_name" json:"week_name"`
	StartDate string `bson:"start_date" json:"start_date"`
	EndDate   string `bson:"end_date" json:"end_date"`
}

// ListWeeks returns the term calendar ordered by week id.
func (s *MongoStore) ListWeeks(ctx context.Context) ([]Week, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.weeks.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "week_id", Value: 1}}))
	if err != nil {
		return nil, Unavailable("list weeks", err)
	}
	var weeks []Week
	if err := cur.All(ctx, &weeks); err != nil {
		return nil, Unavailable("decode weeks", err)
	}
	return weeks, nil
}

// ReplaceAllWeeks wipes and reseeds the term calendar.
func (s *MongoStore) ReplaceAllWeeks(ctx context.Context, weeks []Week) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.weeks.DeleteMany(ctx, bson.M{}); err != nil {
		return Unavailable("clear weeks", err)
	}
	if len(weeks) == 0 {
		return nil
	}
	docs := make([]any, len(weeks))
	for i, w := range weeks {
		docs[i] = w
	}
	if _, err := s.weeks.InsertMany(ctx, docs); err != nil {
		return Unavailable("seed weeks", err)
	}
	return nil
}
