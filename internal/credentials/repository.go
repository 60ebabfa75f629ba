package credentials

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository provides credential persistence operations.
// Upsert replaces any existing record for the session id (idempotent,
// last-writer-wins); Get must not perform network I/O beyond the store call.
type Repository interface {
	Upsert(ctx context.Context, sessionID, accessToken, refreshToken string, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*Credential, error)
}

// MongoRepository implements Repository using a Mongo collection keyed by
// session id.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Upsert(ctx context.Context, sessionID, accessToken, refreshToken string, ttl time.Duration) error {
	cred := &Credential{
		SessionID:    sessionID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().UTC().Add(ttl),
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": sessionID}, cred, opts)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, sessionID string) (*Credential, error) {
	var cred Credential
	if err := r.col.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&cred); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}
