package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTxManager runs units of work in a multi-document transaction. The
// server must be a replica set; with transactions disabled the work runs
// directly and callers rely on compensation instead.
type MongoTxManager struct {
	client  *mongo.Client
	enabled bool
}

func NewMongoTxManager(client *mongo.Client, enabled bool) *MongoTxManager {
	return &MongoTxManager{client: client, enabled: enabled}
}

// Transactional reports whether WithinTransaction rolls back failed work.
func (m *MongoTxManager) Transactional() bool {
	return m.enabled
}

func (m *MongoTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.enabled {
		return fn(ctx)
	}

	sess, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
