// Package student owns the student directory: the CRUD surface around the
// attendance core, backed by the students collection.
package student

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rollcall/internal/attendance"
)

// Student is a directory entry.
type Student struct {
	StudentID int64     `bson:"student_id" json:"student_id"`
	Name      string    `bson:"name" json:"name"`
	Major     string    `bson:"major" json:"major"`
	Email     string    `bson:"email,omitempty" json:"email"`
	Phone     string    `bson:"phone,omitempty" json:"phone"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

var emailRe = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// Validate checks required fields for create, and email format always.
func Validate(st Student, isUpdate bool) error {
	if !isUpdate {
		if st.StudentID <= 0 {
			return attendance.Validationf("student_id must be a positive integer")
		}
		if st.Name == "" {
			return attendance.Validationf("name is required")
		}
		if st.Major == "" {
			return attendance.Validationf("major is required")
		}
	}
	if st.Email != "" && !emailRe.MatchString(st.Email) {
		return attendance.Validationf("email format is invalid")
	}
	return nil
}

// Repository persists students in MongoDB. It implements
// attendance.StudentDirectory.
type Repository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// NewRepository creates a repo over the students collection.
func NewRepository(db *mongo.Database, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Repository{coll: db.Collection("students"), timeout: timeout}
}

// EnsureIndexes creates the unique student_id index.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "student_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return attendance.Unavailable("create students index", err)
	}
	return nil
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// ListParams selects a page of the directory.
type ListParams struct {
	Page  int
	Limit int
	Sort  string
	Order string
}

var sortable = map[string]bool{
	"student_id": true,
	"name":       true,
	"major":      true,
	"created_at": true,
}

// List returns one page of students plus the total count.
func (r *Repository) List(ctx context.Context, p ListParams) ([]Student, int64, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 200 {
		p.Limit = 50
	}
	if !sortable[p.Sort] {
		p.Sort = "student_id"
	}
	dir := 1
	if p.Order == "desc" {
		dir = -1
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, attendance.Unavailable("count students", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: p.Sort, Value: dir}}).
		SetSkip(int64((p.Page - 1) * p.Limit)).
		SetLimit(int64(p.Limit))
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, attendance.Unavailable("list students", err)
	}
	var students []Student
	if err := cur.All(ctx, &students); err != nil {
		return nil, 0, attendance.Unavailable("decode students", err)
	}
	return students, total, nil
}

// Get returns the student or nil when absent.
func (r *Repository) Get(ctx context.Context, studentID int64) (*Student, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	var st Student
	err := r.coll.FindOne(ctx, bson.M{"student_id": studentID}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, attendance.Unavailable("find student", err)
	}
	return &st, nil
}

// Exists reports whether a directory entry exists for studentID.
func (r *Repository) Exists(ctx context.Context, studentID int64) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	n, err := r.coll.CountDocuments(ctx, bson.M{"student_id": studentID}, options.Count().SetLimit(1))
	if err != nil {
		return false, attendance.Unavailable("check student exists", err)
	}
	return n > 0, nil
}

// Count returns the directory size.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, attendance.Unavailable("count students", err)
	}
	return n, nil
}

// Create inserts a new student, rejecting duplicate ids.
func (r *Repository) Create(ctx context.Context, st Student) error {
	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, st); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return attendance.Conflictf("student %d already exists", st.StudentID)
		}
		return attendance.Unavailable("insert student", err)
	}
	return nil
}

// Update applies non-empty fields to an existing student.
func (r *Repository) Update(ctx context.Context, studentID int64, st Student) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if st.Name != "" {
		set["name"] = st.Name
	}
	if st.Major != "" {
		set["major"] = st.Major
	}
	if st.Email != "" {
		set["email"] = st.Email
	}
	if st.Phone != "" {
		set["phone"] = st.Phone
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	res, err := r.coll.UpdateOne(ctx, bson.M{"student_id": studentID}, bson.M{"$set": set})
	if err != nil {
		return attendance.Unavailable("update student", err)
	}
	if res.MatchedCount == 0 {
		return attendance.NotFoundf("student %d not found", studentID)
	}
	return nil
}

// Delete removes the student.
func (r *Repository) Delete(ctx context.Context, studentID int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	res, err := r.coll.DeleteOne(ctx, bson.M{"student_id": studentID})
	if err != nil {
		return attendance.Unavailable("delete student", err)
	}
	if res.DeletedCount == 0 {
		return attendance.NotFoundf("student %d not found", studentID)
	}
	return nil
}

// ReplaceAll wipes the directory and inserts the given students. Seeding only.
func (r *Repository) ReplaceAll(ctx context.Context, students []Student) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if _, err := r.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return attendance.Unavailable("clear students", err)
	}
	if len(students) == 0 {
		return nil
	}
	docs := make([]any, len(students))
	for i, s := range students {
		docs[i] = s
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return attendance.Unavailable("seed students", err)
	}
	return nil
}
