package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
)

const (
	fieldUsername      = "username"
	fieldAccessControl = "access_control"
	fieldName          = "name"
	fieldPasswordHash  = "password_hash"
	fieldUpdatedAt     = "updated_at"

	// fieldLegacyPassword held plaintext passwords in older deployments.
	fieldLegacyPassword = "password"
)

// userDocument is the stored shape of a user.
type userDocument struct {
	Username      string    `bson:"username"`
	AccessControl string    `bson:"access_control"`
	Name          string    `bson:"name"`
	PasswordHash  string    `bson:"password_hash"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toDocument(u *domain.User) userDocument {
	return userDocument{
		Username:      u.Username,
		AccessControl: string(u.AccessControl),
		Name:          u.Name,
		PasswordHash:  u.PasswordHash,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		Username:      d.Username,
		AccessControl: domain.AccessControl(d.AccessControl),
		Name:          d.Name,
		PasswordHash:  d.PasswordHash,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// userRepository implements repository.UserRepository for MongoDB.
type userRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func newUserRepository(coll *mongo.Collection, timeout time.Duration) *userRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &userRepository{coll: coll, timeout: timeout}
}

func (r *userRepository) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// Create inserts a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, toDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.NewDomainError(domain.ErrUserAlreadyExists, "username taken", user.Username)
		}
		return domain.Unavailable("create user", err)
	}
	return nil
}

// GetByUsername retrieves a user by username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	var doc userDocument
	err := r.coll.FindOne(ctx, bson.M{fieldUsername: username}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Unavailable("get user", err)
	}
	return doc.toDomain(), nil
}

// Update overwrites the mutable fields of the matching user.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	user.UpdatedAt = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{fieldUsername: user.Username}, updateDocument(user))
	if err != nil {
		return domain.Unavailable("update user", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// updateDocument sets the mutable fields of user and removes any plaintext
// password left by older deployments.
func updateDocument(user *domain.User) bson.M {
	return bson.M{
		"$set": bson.M{
			fieldAccessControl: string(user.AccessControl),
			fieldName:          user.Name,
			fieldPasswordHash:  user.PasswordHash,
			fieldUpdatedAt:     user.UpdatedAt,
		},
		"$unset": bson.M{fieldLegacyPassword: ""},
	}
}

// DeleteByUsername deletes the matching user.
func (r *userRepository) DeleteByUsername(ctx context.Context, username string) (bool, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{fieldUsername: username})
	if err != nil {
		return false, domain.Unavailable("delete user", err)
	}
	return res.DeletedCount > 0, nil
}

// ListDirectory returns every user, projecting away the password hash.
func (r *userRepository) ListDirectory(ctx context.Context) ([]domain.DirectoryEntry, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	opts := options.Find().
		SetProjection(bson.M{"_id": 0, fieldPasswordHash: 0}).
		SetSort(bson.D{{Key: fieldUsername, Value: 1}})

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, domain.Unavailable("list users", err)
	}
	defer cur.Close(ctx)

	entries := make([]domain.DirectoryEntry, 0)
	if err := cur.All(ctx, &entries); err != nil {
		return nil, domain.Unavailable("list users", err)
	}
	return entries, nil
}

// ExistsByUsername checks if a user with the given username exists.
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{fieldUsername: username}, options.Count().SetLimit(1))
	if err != nil {
		return false, domain.Unavailable("check username", err)
	}
	return n > 0, nil
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
