package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/vitalgen/internal/domain/datapoint"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Inserter is the part of *mongo.Collection the MongoWriter uses.
type Inserter interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// MongoWriter inserts every batch with a single ordered InsertMany.
type MongoWriter struct {
	coll       Inserter
	disconnect func(ctx context.Context) error

	mu     sync.RWMutex
	closed bool
}

// NewMongoWriter wraps an existing collection.
func NewMongoWriter(coll Inserter) *MongoWriter {
	return &MongoWriter{coll: coll}
}

// DialMongo connects to uri and writes to database.collection.
func DialMongo(ctx context.Context, uri, database, collection string) (*MongoWriter, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: mongodb: %w", ErrConnect, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: mongodb ping: %w", ErrConnect, err)
	}

	w := NewMongoWriter(client.Database(database).Collection(collection))
	w.disconnect = client.Disconnect
	return w, nil
}

// Document converts a data point to BSON by reading its JSON record as relaxed
// extended JSON. Field order follows the record.
func Document(p datapoint.DataPoint) (bson.D, error) {
	raw, err := Encode(p)
	if err != nil {
		return nil, err
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, fmt.Errorf("%w: data point %s to bson: %w", ErrEncode, p.Header().ID, err)
	}
	return doc, nil
}

// WriteDataPoints converts and inserts the batch.
func (mw *MongoWriter) WriteDataPoints(ctx context.Context, points []datapoint.DataPoint) (int64, error) {
	if len(points) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, 0, len(points))
	for _, p := range points {
		doc, err := Document(p)
		if err != nil {
			return 0, err
		}
		docs = append(docs, doc)
	}

	mw.mu.RLock()
	defer mw.mu.RUnlock()
	if mw.closed {
		return 0, ErrClosed
	}

	res, err := mw.coll.InsertMany(ctx, docs)
	var n int64
	if res != nil {
		n = int64(len(res.InsertedIDs))
	}
	if err != nil {
		return n, fmt.Errorf("%w: mongodb insert: %w", ErrWrite, err)
	}
	return n, nil
}

// Close disconnects the client if this writer dialed it.
func (mw *MongoWriter) Close(ctx context.Context) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.closed {
		return nil
	}
	mw.closed = true
	if mw.disconnect != nil {
		if err := mw.disconnect(ctx); err != nil {
			return fmt.Errorf("mongodb disconnect: %w", err)
		}
	}
	return nil
}
