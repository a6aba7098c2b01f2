// Package mongostore implements the repositories on MongoDB. Records use
// string ids in _id; every decoded document is validated before it is
// returned.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/helpdesk-service/internal/repository"
)

const (
	colAccounts    = "accounts"
	colTickets     = "tickets"
	colAssignments = "assignments"
	colFeedback    = "feedback"
	colMessages    = "messages"
)

// New wires the repositories to db. With transactions enabled the deployment
// must be a replica set.
func New(client *mongo.Client, db *mongo.Database, transactions bool) *repository.Store {
	return &repository.Store{
		Accounts:    &accountRepository{col: db.Collection(colAccounts)},
		Tickets:     &ticketRepository{col: db.Collection(colTickets)},
		Assignments: &assignmentRepository{col: db.Collection(colAssignments)},
		Feedback:    &feedbackRepository{col: db.Collection(colFeedback)},
		Messages:    &messageRepository{col: db.Collection(colMessages)},
		Tx:          &transactor{client: client, enabled: transactions},
		Atomic:      transactions,
	}
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		colAccounts: {
			{Keys: bson.D{{Key: "email_lower", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		colTickets: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colAssignments: {
			{Keys: bson.D{{Key: "ticket_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "assignee_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colFeedback: {
			{Keys: bson.D{{Key: "ticket_id", Value: 1}, {Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colMessages: {
			{Keys: bson.D{{Key: "thread_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", name, err)
		}
	}
	return nil
}

type transactor struct {
	client  *mongo.Client
	enabled bool
}

// WithinTx runs fn in a session transaction when enabled. Otherwise fn runs
// directly and services compensate their own partial writes.
func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func mapMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	default:
		return err
	}
}

func findOptions(newestFirst bool, limit, offset int) *options.FindOptions {
	dir := 1
	if newestFirst {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: dir}, {Key: "_id", Value: dir}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	return opts
}

// decodeAll decodes every document of cur and converts it with toDomain,
// which validates.
func decodeAll[D any, T any](ctx context.Context, cur *mongo.Cursor, toDomain func(*D) (T, error)) ([]T, error) {
	defer cur.Close(ctx)
	var out []T
	for cur.Next(ctx) {
		var doc D
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", repository.ErrInvalidDocument, err)
		}
		item, err := toDomain(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, cur.Err()
}
