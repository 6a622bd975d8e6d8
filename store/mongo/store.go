// Package mongo is a CredentialStore over a MongoDB collection. Emails are
// kept unique by an index created in Open.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/educatebharat/otpauth"
)

// DefaultCollection is used when Open is given an empty collection name.
const DefaultCollection = "users"

type identityFields struct {
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// identityDoc is the shape written by Create.
type identityDoc struct {
	ID             string `bson:"_id"`
	identityFields `bson:",inline"`
}

// storedDoc is the shape read back. Older records carry an ObjectID _id, so
// the id is decoded raw and normalized to a string.
type storedDoc struct {
	ID             bson.RawValue `bson:"_id"`
	identityFields `bson:",inline"`
}

func (d storedDoc) identity() (otpauth.Identity, error) {
	id, err := idString(d.ID)
	if err != nil {
		return otpauth.Identity{}, err
	}
	return otpauth.Identity{
		ID:           id,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

func idString(v bson.RawValue) (string, error) {
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex(), nil
	}
	if s, ok := v.StringValueOK(); ok {
		return s, nil
	}
	return "", fmt.Errorf("unsupported _id type %s", v.Type)
}

// idFilter matches id as a string and, when it is ObjectID hex, as an
// ObjectID too.
func idFilter(id string) bson.D {
	if oid, err := bson.ObjectIDFromHex(id); err == nil {
		return bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: bson.A{oid, id}}}}}
	}
	return bson.D{{Key: "_id", Value: id}}
}

// Store implements otpauth.CredentialStore.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

var _ otpauth.CredentialStore = (*Store)(nil)

// Open connects to uri, selects database and collection and ensures the
// unique email index.
func Open(ctx context.Context, uri, database, collection string) (*Store, error) {
	if uri == "" || database == "" {
		return nil, fmt.Errorf("mongo uri and database are required")
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{
		client:     client,
		collection: client.Database(database).Collection(collection),
		now:        time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// Ping reports whether the primary answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (otpauth.Identity, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetByID(ctx context.Context, id string) (otpauth.Identity, error) {
	return s.findOne(ctx, idFilter(id))
}

func (s *Store) findOne(ctx context.Context, filter bson.D) (otpauth.Identity, error) {
	var doc storedDoc
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return otpauth.Identity{}, otpauth.ErrNotFound
	}
	if err != nil {
		return otpauth.Identity{}, fmt.Errorf("find identity: %w", err)
	}
	identity, err := doc.identity()
	if err != nil {
		return otpauth.Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	return identity, nil
}

func (s *Store) Create(ctx context.Context, identity otpauth.Identity) error {
	_, err := s.collection.InsertOne(ctx, identityDoc{
		ID: identity.ID,
		identityFields: identityFields{
			Name:         identity.Name,
			Email:        identity.Email,
			PasswordHash: identity.PasswordHash,
			CreatedAt:    identity.CreatedAt.UTC(),
			UpdatedAt:    identity.UpdatedAt.UTC(),
		},
	})
	if mongo.IsDuplicateKeyError(err) {
		return otpauth.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	res, err := s.collection.UpdateOne(ctx,
		idFilter(id),
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "password", Value: passwordHash},
			{Key: "updatedAt", Value: s.now().UTC()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if res.MatchedCount == 0 {
		return otpauth.ErrNotFound
	}
	return nil
}
