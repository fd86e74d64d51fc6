// Package mongo stores tasks and users as documents, mirroring the sqlite
// backend's semantics.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "daybook/internal/errors"
	"daybook/internal/models"
	"daybook/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type taskDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      primitive.ObjectID `bson:"userId"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	DueDate     string             `bson:"dueDate"`
	Completed   bool               `bson:"completed"`
	Order       int                `bson:"order"`
	Category    string             `bson:"category"`
	Tags        []string           `bson:"tags"`
	Fixed       bool               `bson:"fixed"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Name         string             `bson:"name"`
	Country      string             `bson:"country"`
	PasswordHash string             `bson:"password"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

// Store is a MongoDB backed storage.Store.
type Store struct {
	client *mongo.Client
	tasks  *mongo.Collection
	users  *mongo.Collection
	logger *slog.Logger
	now    func() time.Time
}

// Open connects to uri, selects database and ensures indexes.
func Open(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("empty mongo uri")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		tasks:  db.Collection("tasks"),
		users:  db.Collection("users"),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create user index: %w", err)
	}
	_, err = s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "dueDate", Value: 1}, {Key: "order", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create task index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// CreateUser stores a new account. A reused email yields a conflict error.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Email:        strings.ToLower(strings.TrimSpace(u.Email)),
		Name:         u.Name,
		Country:      u.Country,
		PasswordHash: u.PasswordHash,
		CreatedAt:    s.now(),
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, apperrors.NewConflictError("user with this email already exists")
		}
		return models.User{}, apperrors.NewDatabaseError("insert user", err)
	}
	return doc.toModel(), nil
}

// GetUser fetches an account by id.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, apperrors.NewNotFoundError("user", id)
	}
	return s.findUser(ctx, bson.M{"_id": oid}, id)
}

// GetUserByEmail fetches an account by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.findUser(ctx, bson.M{"email": email}, email)
}

func (s *Store) findUser(ctx context.Context, filter bson.M, ident string) (models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, apperrors.NewNotFoundError("user", ident)
	}
	if err != nil {
		return models.User{}, apperrors.NewDatabaseError("get user", err)
	}
	return doc.toModel(), nil
}

// ListTasks returns the owner's tasks within the range ordered by day and order.
func (s *Store) ListTasks(ctx context.Context, ownerID string, r storage.DateRange) ([]models.Task, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return []models.Task{}, nil
	}
	filter := bson.M{"userId": owner}
	due := bson.M{}
	if r.Start != "" {
		due["$gte"] = r.Start
	}
	if r.End != "" {
		due["$lte"] = r.End
	}
	if len(due) > 0 {
		filter["dueDate"] = due
	}
	return s.findTasks(ctx, "list tasks", filter)
}

// SearchTasks matches the owner's task titles case-insensitively.
func (s *Store) SearchTasks(ctx context.Context, ownerID, text string) ([]models.Task, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return []models.Task{}, nil
	}
	filter := bson.M{
		"userId": owner,
		"title":  primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(text)), Options: "i"},
	}
	return s.findTasks(ctx, "search tasks", filter)
}

func (s *Store) findTasks(ctx context.Context, op string, filter bson.M) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "dueDate", Value: 1},
		{Key: "order", Value: 1},
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.tasks.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.NewDatabaseError(op, err)
	}
	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, apperrors.NewDatabaseError(op, err)
	}
	tasks := make([]models.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.toModel())
	}
	return tasks, nil
}

// CreateTask inserts a new task at the end of its owner's day list.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return models.Task{}, apperrors.NewValidationError("task title must not be empty", nil)
	}
	owner, err := primitive.ObjectIDFromHex(t.OwnerID)
	if err != nil {
		return models.Task{}, apperrors.NewValidationError("invalid owner id", err)
	}
	if _, ok := models.ValidCategories[t.Category]; !ok {
		t.Category = models.CategoryPersonal
	}

	pos, err := s.nextOrder(ctx, owner, t.DueDate)
	if err != nil {
		return models.Task{}, err
	}

	now := s.now()
	doc := taskDoc{
		ID:          primitive.NewObjectID(),
		UserID:      owner,
		Title:       strings.TrimSpace(t.Title),
		Description: strings.TrimSpace(t.Description),
		DueDate:     t.DueDate,
		Completed:   t.Completed,
		Order:       pos,
		Category:    string(t.Category),
		Tags:        nonNil(t.Tags),
		Fixed:       t.Fixed || t.Category == models.CategoryHoliday,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.tasks.InsertOne(ctx, doc); err != nil {
		return models.Task{}, apperrors.NewDatabaseError("insert task", err)
	}
	return doc.toModel(), nil
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Task{}, apperrors.NewNotFoundError("task", id)
	}
	var doc taskDoc
	err = s.tasks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Task{}, apperrors.NewNotFoundError("task", id)
	}
	if err != nil {
		return models.Task{}, apperrors.NewDatabaseError("get task", err)
	}
	return doc.toModel(), nil
}

// UpdateTask applies a partial update with $set. A task moved to another day
// without an explicit order is appended to the end of that day.
func (s *Store) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	next := patch.Apply(current)
	next.Title = strings.TrimSpace(next.Title)
	if next.Title == "" {
		return models.Task{}, apperrors.NewValidationError("task title must not be empty", nil)
	}

	set := bson.M{"updatedAt": s.now()}
	if patch.Title != nil {
		set["title"] = next.Title
	}
	if patch.Description != nil {
		set["description"] = next.Description
	}
	if patch.DueDate != nil {
		set["dueDate"] = next.DueDate
	}
	if patch.Completed != nil {
		set["completed"] = next.Completed
	}
	if patch.Category != nil {
		set["category"] = string(next.Category)
		set["fixed"] = next.Fixed
	}
	if patch.Tags != nil {
		set["tags"] = nonNil(next.Tags)
	}
	if patch.Order != nil {
		set["order"] = next.Order
	} else if next.DueDate != current.DueDate {
		owner, _ := primitive.ObjectIDFromHex(current.OwnerID)
		pos, err := s.nextOrder(ctx, owner, next.DueDate)
		if err != nil {
			return models.Task{}, err
		}
		set["order"] = pos
	}

	oid, _ := primitive.ObjectIDFromHex(id)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc taskDoc
	err = s.tasks.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Task{}, apperrors.NewNotFoundError("task", id)
	}
	if err != nil {
		return models.Task{}, apperrors.NewDatabaseError("update task", err)
	}
	if patch.Order == nil && next.DueDate != current.DueDate {
		if err := s.closeGap(ctx, doc.UserID, current.DueDate, current.Order); err != nil {
			return models.Task{}, err
		}
	}
	return doc.toModel(), nil
}

// DeleteTask removes a task by id and returns what was removed.
func (s *Store) DeleteTask(ctx context.Context, id string) (models.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Task{}, apperrors.NewNotFoundError("task", id)
	}
	var doc taskDoc
	err = s.tasks.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Task{}, apperrors.NewNotFoundError("task", id)
	}
	if err != nil {
		return models.Task{}, apperrors.NewDatabaseError("delete task", err)
	}
	if err := s.closeGap(ctx, doc.UserID, doc.DueDate, doc.Order); err != nil {
		return models.Task{}, err
	}
	return doc.toModel(), nil
}

// closeGap shifts the tasks after a vacated order up by one.
func (s *Store) closeGap(ctx context.Context, owner primitive.ObjectID, dueDate string, order int) error {
	filter := bson.M{"userId": owner, "dueDate": dueDate, "order": bson.M{"$gt": order}}
	if _, err := s.tasks.UpdateMany(ctx, filter, bson.M{"$inc": bson.M{"order": -1}}); err != nil {
		return apperrors.NewDatabaseError("compact order", err)
	}
	return nil
}

func (s *Store) nextOrder(ctx context.Context, owner primitive.ObjectID, dueDate string) (int, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "order", Value: -1}}).SetProjection(bson.M{"order": 1})
	var doc struct {
		Order int `bson:"order"`
	}
	err := s.tasks.FindOne(ctx, bson.M{"userId": owner, "dueDate": dueDate}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.NewDatabaseError("select order", err)
	}
	return doc.Order + 1, nil
}

func (d taskDoc) toModel() models.Task {
	return models.Task{
		ID:          d.ID.Hex(),
		OwnerID:     d.UserID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		DueDate:     d.DueDate,
		Completed:   d.Completed,
		Order:       d.Order,
		Category:    models.Category(d.Category),
		Tags:        nonNil(d.Tags),
		Fixed:       d.Fixed,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (d userDoc) toModel() models.User {
	return models.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Name:         d.Name,
		Country:      d.Country,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return append([]string(nil), tags...)
}
