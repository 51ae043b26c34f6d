package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/desa-layanan-api/internal/models"
)

// ServiceRequestCollection is the MongoDB collection holding service requests.
const ServiceRequestCollection = "service_requests"

// MongoServiceRequestRepository persists service requests in MongoDB.
type MongoServiceRequestRepository struct {
	coll *mongo.Collection
}

// NewMongoServiceRequestRepository constructs the repository.
func NewMongoServiceRequestRepository(db *mongo.Database) *MongoServiceRequestRepository {
	return &MongoServiceRequestRepository{coll: db.Collection(ServiceRequestCollection)}
}

// EnsureIndexes creates the indexes used by the ordered listings and the sweep.
func (r *MongoServiceRequestRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "requestType", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "savedByUserIds", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("ensure service request indexes: %w", err)
	}
	return nil
}

// Create inserts a new request and assigns its identifier and timestamps.
func (r *MongoServiceRequestRepository) Create(ctx context.Context, req *models.ServiceRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	req.UpdatedAt = req.CreatedAt
	if req.SavedByUserIDs == nil {
		req.SavedByUserIDs = pq.StringArray{}
	}
	if _, err := r.coll.InsertOne(ctx, req); err != nil {
		return fmt.Errorf("create service request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *MongoServiceRequestRepository) GetByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get service request: %w", err)
	}
	return &req, nil
}

// List returns requests matching the filter, newest first unless the filter is unordered.
func (r *MongoServiceRequestRepository) List(ctx context.Context, filter models.ServiceRequestFilter) ([]models.ServiceRequest, error) {
	query := bson.M{}
	if filter.Type != "" {
		query["requestType"] = filter.Type
	}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.SavedBy != "" {
		query["savedByUserIds"] = filter.SavedBy
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.CreatedBefore != nil {
		query["createdAt"] = bson.M{"$lt": *filter.CreatedBefore}
	}

	opts := options.Find()
	if !filter.Unordered {
		opts.SetSort(bson.D{{Key: "createdAt", Value: -1}})
	}

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, wrapMongoListError("list service requests", filter.Unordered, err)
	}
	requests := make([]models.ServiceRequest, 0)
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, wrapMongoListError("decode service requests", filter.Unordered, err)
	}
	return requests, nil
}

// UpdateStatus applies a transition only when the document is still in one of params.FromStatuses.
func (r *MongoServiceRequestRepository) UpdateStatus(ctx context.Context, params models.UpdateServiceRequestStatusParams) error {
	if len(params.FromStatuses) == 0 {
		return fmt.Errorf("update service request status: no source statuses")
	}
	if params.UpdatedAt.IsZero() {
		params.UpdatedAt = time.Now().UTC()
	}

	set := bson.M{
		"status":    literal(params.ToStatus),
		"updatedAt": literal(params.UpdatedAt),
	}
	assign := func(field string, value interface{}) {
		set[field] = literal(value)
	}
	if params.NoteByLocalChief != nil {
		assign("noteByLocalChief", *params.NoteByLocalChief)
	}
	if params.ReferenceNumberFromLocalChief != nil {
		assign("referenceNumberFromLocalChief", *params.ReferenceNumberFromLocalChief)
	}
	if params.LocalChiefApprovedBy != nil {
		assign("localChiefApprovedBy", *params.LocalChiefApprovedBy)
	}
	if params.LocalChiefApprovedAt != nil {
		assign("localChiefApprovedAt", *params.LocalChiefApprovedAt)
		assign("approvedByLocalChief", true)
	}
	if params.NoteByAdmin != nil {
		assign("noteByAdmin", *params.NoteByAdmin)
	}
	if params.ReferenceNumberFromAdmin != nil {
		assign("referenceNumberFromAdmin", *params.ReferenceNumberFromAdmin)
	}
	if params.AdminApprovedBy != nil {
		assign("adminApprovedBy", *params.AdminApprovedBy)
	}
	if params.AdminApprovedAt != nil {
		assign("adminApprovedAt", *params.AdminApprovedAt)
		assign("approvedByAdmin", true)
	}
	if params.ApprovalProofCode != nil {
		set["approvalProofCode"] = bson.M{"$ifNull": bson.A{"$approvalProofCode", literal(*params.ApprovalProofCode)}}
	}
	if params.EstimatedCompletionAt != nil {
		assign("estimatedCompletionAt", *params.EstimatedCompletionAt)
	}
	if params.AutoApprovedAt != nil {
		assign("autoApprovedAt", *params.AutoApprovedAt)
		assign("autoApproved", true)
	}
	if params.RejectionReason != nil {
		assign("rejectionReason", *params.RejectionReason)
	}
	if params.RejectedBy != nil {
		assign("rejectedBy", *params.RejectedBy)
	}
	if params.RejectedAt != nil {
		assign("rejectedAt", *params.RejectedAt)
	}
	if params.CompletedAt != nil {
		assign("completedAt", *params.CompletedAt)
	}

	filter := bson.M{"_id": params.ID, "status": bson.M{"$in": params.FromStatuses}}
	result, err := r.coll.UpdateOne(ctx, filter, mongo.Pipeline{{{Key: "$set", Value: set}}})
	if err != nil {
		return fmt.Errorf("update service request status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrStatusConflict
	}
	return nil
}

// SetVillageHeadNote stores the kepala desa annotation without touching the status.
func (r *MongoServiceRequestRepository) SetVillageHeadNote(ctx context.Context, id, note string, updatedAt time.Time) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"noteByVillageHead": note, "updatedAt": updatedAt}})
	if err != nil {
		return fmt.Errorf("set village head note: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddSavedBy bookmarks the request for userID. Repeated calls are no-ops.
func (r *MongoServiceRequestRepository) AddSavedBy(ctx context.Context, id, userID string) error {
	return r.updateSavedBy(ctx, id, bson.M{"$addToSet": bson.M{"savedByUserIds": userID}}, "save service request")
}

// RemoveSavedBy removes the bookmark for userID. Removing an absent bookmark is a no-op.
func (r *MongoServiceRequestRepository) RemoveSavedBy(ctx context.Context, id, userID string) error {
	return r.updateSavedBy(ctx, id, bson.M{"$pull": bson.M{"savedByUserIds": userID}}, "unsave service request")
}

func (r *MongoServiceRequestRepository) updateSavedBy(ctx context.Context, id string, update bson.M, op string) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes the request.
func (r *MongoServiceRequestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete service request: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// literal keeps user supplied strings such as "$5 fee" from being read as field paths in update pipelines.
func literal(v interface{}) bson.M {
	return bson.M{"$literal": v}
}

func wrapMongoListError(op string, unordered bool, err error) error {
	if !unordered && isOrderedQueryFailure(err) {
		return fmt.Errorf("%s: %w", op, errors.Join(ErrOrderedQueryUnavailable, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
