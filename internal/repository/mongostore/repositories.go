package mongostore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type accountRepository struct {
	col *mongo.Collection
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.col.InsertOne(ctx, toAccountDoc(account))
	return mapMongoError(err)
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": account.ID}, toAccountDoc(account))
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapMongoError(err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email_lower": strings.ToLower(email)})
}

func (r *accountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var doc accountDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	account, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) List(ctx context.Context, filter repository.AccountFilter) ([]domain.Account, error) {
	query := bson.M{}
	if filter.Role != nil {
		query["role"] = string(*filter.Role)
	}
	cur, err := r.col.Find(ctx, query, findOptions(false, filter.Limit, filter.Offset))
	if err != nil {
		return nil, mapMongoError(err)
	}
	return decodeAll(ctx, cur, (*accountDoc).toDomain)
}

func (r *accountRepository) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"role": string(role)})
	return int(n), mapMongoError(err)
}

type ticketRepository struct {
	col *mongo.Collection
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	_, err := r.col.InsertOne(ctx, toTicketDoc(ticket))
	return mapMongoError(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": ticket.ID}, toTicketDoc(ticket))
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapMongoError(err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var doc ticketDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	ticket, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	query := bson.M{}
	if filter.OwnerID != nil {
		query["owner_id"] = *filter.OwnerID
	}
	if filter.AssigneeID != nil {
		query["assignee_id"] = *filter.AssigneeID
	}
	if filter.Category != nil {
		query["category"] = *filter.Category
	}
	addStatuses(query, filter.Statuses)
	addCreatedRange(query, filter.CreatedFrom, filter.CreatedTo)

	cur, err := r.col.Find(ctx, query, findOptions(filter.NewestFirst, filter.Limit, filter.Offset))
	if err != nil {
		return nil, mapMongoError(err)
	}
	return decodeAll(ctx, cur, (*ticketDoc).toDomain)
}

type assignmentRepository struct {
	col *mongo.Collection
}

func (r *assignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	_, err := r.col.InsertOne(ctx, toAssignmentDoc(a))
	return mapMongoError(err)
}

func (r *assignmentRepository) Update(ctx context.Context, a *domain.Assignment) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": a.ID}, toAssignmentDoc(a))
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *assignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapMongoError(err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *assignmentRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Assignment, error) {
	return r.findOne(ctx, bson.M{"ticket_id": ticketID})
}

func (r *assignmentRepository) findOne(ctx context.Context, filter bson.M) (*domain.Assignment, error) {
	var doc assignmentDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	a, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepository) List(ctx context.Context, filter repository.AssignmentFilter) ([]domain.Assignment, error) {
	query := bson.M{}
	if filter.AssigneeID != nil {
		query["assignee_id"] = *filter.AssigneeID
	}
	if filter.Category != nil {
		query["category"] = *filter.Category
	}
	addStatuses(query, filter.Statuses)
	addCreatedRange(query, filter.CreatedFrom, filter.CreatedTo)

	cur, err := r.col.Find(ctx, query, findOptions(filter.NewestFirst, filter.Limit, filter.Offset))
	if err != nil {
		return nil, mapMongoError(err)
	}
	return decodeAll(ctx, cur, (*assignmentDoc).toDomain)
}

type feedbackRepository struct {
	col *mongo.Collection
}

// Upsert matches on (ticket_id, user_id); the id, category and creation time
// are only written when the document is inserted.
func (r *feedbackRepository) Upsert(ctx context.Context, fb *domain.Feedback) (bool, error) {
	filter := bson.M{"ticket_id": fb.TicketID, "user_id": fb.UserID}
	update := bson.M{
		"$set": bson.M{
			"email":      fb.Email,
			"rating":     fb.Rating,
			"comment":    fb.Comment,
			"updated_at": fb.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":        fb.ID,
			"category":   fb.Category,
			"created_at": fb.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc feedbackDoc
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return false, mapMongoError(err)
	}
	created := doc.ID == fb.ID
	fb.ID = doc.ID
	fb.Category = doc.Category
	fb.CreatedAt = doc.CreatedAt
	return created, nil
}

func (r *feedbackRepository) GetByTicketAndUser(ctx context.Context, ticketID, userID string) (*domain.Feedback, error) {
	var doc feedbackDoc
	if err := r.col.FindOne(ctx, bson.M{"ticket_id": ticketID, "user_id": userID}).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	fb, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

func (r *feedbackRepository) List(ctx context.Context, filter repository.FeedbackFilter) ([]domain.Feedback, error) {
	query := bson.M{}
	if filter.TicketID != nil {
		query["ticket_id"] = *filter.TicketID
	}
	if filter.UserID != nil {
		query["user_id"] = *filter.UserID
	}
	if filter.Category != nil {
		query["category"] = *filter.Category
	}
	rating := bson.M{}
	if filter.MinRating > 0 {
		rating["$gte"] = filter.MinRating
	}
	if filter.MaxRating > 0 {
		rating["$lte"] = filter.MaxRating
	}
	if len(rating) > 0 {
		query["rating"] = rating
	}

	cur, err := r.col.Find(ctx, query, findOptions(filter.NewestFirst, filter.Limit, filter.Offset))
	if err != nil {
		return nil, mapMongoError(err)
	}
	return decodeAll(ctx, cur, (*feedbackDoc).toDomain)
}

type messageRepository struct {
	col *mongo.Collection
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.TicketMessage) error {
	for i := range msg.Attachments {
		msg.Attachments[i].MessageID = msg.ID
	}
	_, err := r.col.InsertOne(ctx, toMessageDoc(msg))
	return mapMongoError(err)
}

func (r *messageRepository) ListByThread(ctx context.Context, threadID string) ([]domain.TicketMessage, error) {
	cur, err := r.col.Find(ctx, bson.M{"thread_id": threadID}, findOptions(false, 0, 0))
	if err != nil {
		return nil, mapMongoError(err)
	}
	return decodeAll(ctx, cur, (*messageDoc).toDomain)
}

func addStatuses(query bson.M, statuses []domain.TicketStatus) {
	if len(statuses) == 0 {
		return
	}
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	query["status"] = bson.M{"$in": values}
}

func addCreatedRange(query bson.M, from, to *time.Time) {
	created := bson.M{}
	if from != nil {
		created["$gte"] = *from
	}
	if to != nil {
		created["$lt"] = *to
	}
	if len(created) > 0 {
		query["created_at"] = created
	}
}
