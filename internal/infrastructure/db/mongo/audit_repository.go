package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anybank/identity-platform/internal/core/domain"
)

const auditCollection = "audit_records"

// MongoAuditRepository is the append-only audit trail. Records are inserted
// once and never updated or deleted.
type MongoAuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *MongoAuditRepository {
	return &MongoAuditRepository{coll: db.Collection(auditCollection)}
}

type mongoAuditRecord struct {
	ID            string         `bson:"_id"`
	UserID        string         `bson:"user_id,omitempty"`
	TenantID      string         `bson:"tenant_id,omitempty"`
	Action        string         `bson:"action"`
	ResourceType  string         `bson:"resource_type"`
	ResourceID    string         `bson:"resource_id,omitempty"`
	Outcome       string         `bson:"outcome"`
	RiskScore     *int           `bson:"risk_score,omitempty"`
	IPAddress     string         `bson:"ip_address"`
	UserAgent     string         `bson:"user_agent"`
	CorrelationID string         `bson:"correlation_id"`
	Metadata      map[string]any `bson:"metadata,omitempty"`
	CreatedAt     int64          `bson:"created_at"`
}

func (r *MongoAuditRepository) Append(ctx context.Context, rec *domain.AuditRecord) error {
	doc := mongoAuditRecord{
		ID:            rec.ID.String(),
		Action:        rec.Action,
		ResourceType:  rec.ResourceType,
		Outcome:       string(rec.Outcome),
		RiskScore:     rec.RiskScore,
		IPAddress:     rec.IPAddress,
		UserAgent:     rec.UserAgent,
		CorrelationID: rec.CorrelationID,
		Metadata:      rec.Metadata,
		CreatedAt:     rec.CreatedAt.Unix(),
	}
	if rec.UserID != nil {
		doc.UserID = rec.UserID.String()
	}
	if rec.TenantID != nil {
		doc.TenantID = rec.TenantID.String()
	}
	if rec.ResourceID != nil {
		doc.ResourceID = rec.ResourceID.String()
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

func (r *MongoAuditRepository) CountRecentActions(ctx context.Context, userID uuid.UUID, action string, outcome domain.AuditOutcome, since time.Time) (int64, error) {
	filter := bson.M{
		"user_id":    userID.String(),
		"action":     action,
		"outcome":    string(outcome),
		"created_at": bson.M{"$gte": since.Unix()},
	}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count recent actions: %w", err)
	}
	return n, nil
}

func (r *MongoAuditRepository) RecentIPs(ctx context.Context, userID uuid.UUID, since time.Time, limit int64) ([]string, error) {
	filter := bson.M{
		"user_id":    userID.String(),
		"created_at": bson.M{"$gte": since.Unix()},
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit).
		SetProjection(bson.M{"ip_address": 1})

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("recent ips: %w", err)
	}
	defer cur.Close(ctx)

	seen := make(map[string]struct{})
	var out []string
	for cur.Next(ctx) {
		var doc struct {
			IPAddress string `bson:"ip_address"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode audit ip: %w", err)
		}
		if doc.IPAddress == "" {
			continue
		}
		if _, dup := seen[doc.IPAddress]; dup {
			continue
		}
		seen[doc.IPAddress] = struct{}{}
		out = append(out, doc.IPAddress)
	}
	return out, cur.Err()
}

func (r *MongoAuditRepository) SeenUserAgent(ctx context.Context, userID uuid.UUID, userAgent string, since time.Time) (bool, error) {
	filter := bson.M{
		"user_id":    userID.String(),
		"user_agent": userAgent,
		"created_at": bson.M{"$gte": since.Unix()},
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("seen user agent: %w", err)
	}
	return n > 0, nil
}
