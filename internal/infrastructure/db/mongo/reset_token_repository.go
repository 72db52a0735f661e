package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

const collectionResetTokens = "password_reset_tokens"

// ResetTokenRepository keeps one document per user. The unique user_id
// index turns ReplaceForUser into a single atomic upsert.
type ResetTokenRepository struct {
	col *mongo.Collection
}

func NewResetTokenRepository(db *mongo.Database) *ResetTokenRepository {
	return &ResetTokenRepository{col: db.Collection(collectionResetTokens)}
}

type resetTokenDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	UserID    string             `bson:"user_id"`
	ExpiresAt time.Time          `bson:"expires_at"`
	Used      bool               `bson:"used"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d resetTokenDocument) toDomain() *domain.PasswordResetToken {
	return &domain.PasswordResetToken{
		ID:        d.ID.Hex(),
		Token:     d.Token,
		UserID:    d.UserID,
		ExpiresAt: d.ExpiresAt.UTC(),
		Used:      d.Used,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

func (r *ResetTokenRepository) ReplaceForUser(ctx context.Context, t *domain.PasswordResetToken) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := resetTokenDocument{
		Token:     t.Token,
		UserID:    t.UserID,
		ExpiresAt: t.ExpiresAt,
		Used:      t.Used,
		CreatedAt: t.CreatedAt,
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"user_id": t.UserID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace reset token: %w", err)
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		t.ID = oid.Hex()
	}
	return nil
}

func (r *ResetTokenRepository) FindByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	return r.findOne(ctx, bson.M{"token": token})
}

func (r *ResetTokenRepository) FindByUser(ctx context.Context, userID string) (*domain.PasswordResetToken, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *ResetTokenRepository) findOne(ctx context.Context, filter bson.M) (*domain.PasswordResetToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc resetTokenDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrResetTokenNotFound
		}
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	return doc.toDomain(), nil
}

// MarkUsed is a conditional update on used=false, so only one caller can
// observe ModifiedCount == 1.
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"token": token, "used": false},
		bson.M{"$set": bson.M{"used": true}},
	)
	if err != nil {
		return false, fmt.Errorf("mark reset token used: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *ResetTokenRepository) Release(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateOne(ctx,
		bson.M{"token": token, "used": true},
		bson.M{"$set": bson.M{"used": false}},
	)
	if err != nil {
		return fmt.Errorf("release reset token: %w", err)
	}
	return nil
}

func (r *ResetTokenRepository) Delete(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteOne(ctx, bson.M{"token": token}); err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique token and user_id indexes.
func (r *ResetTokenRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
