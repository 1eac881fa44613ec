package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/anybank/identity-platform/internal/core/domain"
)

const membershipCollection = "memberships"

type MongoMembershipRepository struct {
	coll *mongo.Collection
}

func NewMembershipRepository(db *mongo.Database) *MongoMembershipRepository {
	return &MongoMembershipRepository{coll: db.Collection(membershipCollection)}
}

// Tenant attributes are denormalized onto the membership document so that one
// lookup resolves the full scope.
type mongoMembership struct {
	ID         string `bson:"_id"`
	UserID     string `bson:"user_id"`
	TenantID   string `bson:"tenant_id"`
	TenantName string `bson:"tenant_name"`
	TenantType string `bson:"tenant_type"`
	Role       string `bson:"role"`
	Status     string `bson:"status"`
	CreatedAt  int64  `bson:"created_at"`
}

func (r *MongoMembershipRepository) FindActive(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error) {
	filter := bson.M{
		"user_id":   userID.String(),
		"tenant_id": tenantID.String(),
		"status":    string(domain.MembershipActive),
	}

	var mm mongoMembership
	if err := r.coll.FindOne(ctx, filter).Decode(&mm); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("find membership: %w", err)
	}
	return mm.toDomain()
}

func (r *MongoMembershipRepository) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]domain.Membership, error) {
	filter := bson.M{
		"user_id": userID.String(),
		"status":  string(domain.MembershipActive),
	}

	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.Membership
	for cur.Next(ctx) {
		var mm mongoMembership
		if err := cur.Decode(&mm); err != nil {
			return nil, fmt.Errorf("decode membership: %w", err)
		}
		m, err := mm.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, cur.Err()
}

func (mm *mongoMembership) toDomain() (*domain.Membership, error) {
	id, err := uuid.Parse(mm.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt membership id %q: %w", mm.ID, err)
	}
	userID, err := uuid.Parse(mm.UserID)
	if err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", mm.UserID, err)
	}
	tenantID, err := uuid.Parse(mm.TenantID)
	if err != nil {
		return nil, fmt.Errorf("corrupt tenant id %q: %w", mm.TenantID, err)
	}

	return &domain.Membership{
		ID:         id,
		UserID:     userID,
		TenantID:   tenantID,
		TenantName: mm.TenantName,
		TenantType: domain.TenantType(mm.TenantType),
		Role:       domain.MembershipRole(mm.Role),
		Status:     domain.MembershipStatus(mm.Status),
		CreatedAt:  unixToTime(mm.CreatedAt),
	}, nil
}
