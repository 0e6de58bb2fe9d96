package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"querypad/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoQuery is the JSON document users write as the query text for
// MongoDB profiles.
type mongoQuery struct {
	Collection string         `json:"collection"`
	Operation  string         `json:"operation,omitempty"` // find (default), aggregate, insertOne, updateMany, deleteMany
	Filter     map[string]any `json:"filter,omitempty"`
	Projection map[string]any `json:"projection,omitempty"`
	Sort       map[string]any `json:"sort,omitempty"`
	Document   map[string]any `json:"document,omitempty"`
	Update     map[string]any `json:"update,omitempty"`
	Pipeline   []any          `json:"pipeline,omitempty"`
}

func mongoURI(p *domain.ConnectionProfile) string {
	port := p.Port
	if port == 0 {
		port = 27017
	}
	var uri string
	if p.User != "" {
		uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", p.User, p.Password, p.Host, port)
	} else {
		uri = fmt.Sprintf("mongodb://%s:%d", p.Host, port)
	}
	if p.SSL {
		uri += "?tls=true"
	}
	return uri
}

// execMongo runs one command document against a fresh client.
// Like the SQL path, the client is disconnected on every exit path.
func execMongo(ctx context.Context, p *domain.ConnectionProfile, queryText string) (*domain.QueryResult, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(mongoURI(p)))
	if err != nil {
		return nil, &ConnectError{Err: err}
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Disconnect(dctx)
	}()

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, &ConnectError{Err: err}
	}

	var mq mongoQuery
	if err := json.Unmarshal([]byte(queryText), &mq); err != nil {
		return nil, &QueryError{Err: fmt.Errorf("invalid query JSON: %w", err)}
	}
	if mq.Collection == "" {
		return nil, &QueryError{Err: fmt.Errorf("query must specify 'collection'")}
	}

	opCtx, cancelOp := context.WithTimeout(ctx, queryTimeout)
	defer cancelOp()

	coll := client.Database(p.Database).Collection(mq.Collection)

	op := mq.Operation
	if op == "" {
		op = "find"
	}
	switch op {
	case "find":
		return mongoFind(opCtx, coll, mq)
	case "aggregate":
		return mongoAggregate(opCtx, coll, mq)
	case "insertOne":
		if mq.Document == nil {
			return nil, &QueryError{Err: fmt.Errorf("insertOne requires 'document'")}
		}
		if _, err := coll.InsertOne(opCtx, mq.Document); err != nil {
			return nil, &QueryError{Err: err}
		}
		return affectedResult(1), nil
	case "updateMany":
		if mq.Update == nil {
			return nil, &QueryError{Err: fmt.Errorf("updateMany requires 'update'")}
		}
		res, err := coll.UpdateMany(opCtx, orEmptyFilter(mq.Filter), mq.Update)
		if err != nil {
			return nil, &QueryError{Err: err}
		}
		return affectedResult(res.ModifiedCount), nil
	case "deleteMany":
		res, err := coll.DeleteMany(opCtx, orEmptyFilter(mq.Filter))
		if err != nil {
			return nil, &QueryError{Err: err}
		}
		return affectedResult(res.DeletedCount), nil
	default:
		return nil, &QueryError{Err: fmt.Errorf("unsupported operation: %s", op)}
	}
}

func testMongo(ctx context.Context, p *domain.ConnectionProfile) error {
	client, err := mongo.Connect(options.Client().ApplyURI(mongoURI(p)))
	if err != nil {
		return &ConnectError{Err: err}
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Disconnect(dctx)
	}()

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return &ConnectError{Err: err}
	}
	return nil
}

func mongoFind(ctx context.Context, coll *mongo.Collection, mq mongoQuery) (*domain.QueryResult, error) {
	opts := options.Find()
	if mq.Projection != nil {
		opts.SetProjection(mq.Projection)
	}
	if mq.Sort != nil {
		opts.SetSort(mq.Sort)
	}
	cursor, err := coll.Find(ctx, orEmptyFilter(mq.Filter), opts)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	return drainCursor(ctx, cursor)
}

func mongoAggregate(ctx context.Context, coll *mongo.Collection, mq mongoQuery) (*domain.QueryResult, error) {
	pipeline := mq.Pipeline
	if pipeline == nil {
		pipeline = []any{}
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	return drainCursor(ctx, cursor)
}

// drainCursor reads all documents and normalizes them into the
// column/row shape. Column order: _id first, then alphabetical.
func drainCursor(ctx context.Context, cursor *mongo.Cursor) (*domain.QueryResult, error) {
	defer cursor.Close(ctx)

	var docs []bson.D
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, &QueryError{Err: err}
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, &QueryError{Err: err}
	}

	colSet := map[string]bool{}
	var columns []string
	for _, doc := range docs {
		for _, elem := range doc {
			if !colSet[elem.Key] {
				colSet[elem.Key] = true
				columns = append(columns, elem.Key)
			}
		}
	}
	sort.SliceStable(columns, func(i, j int) bool {
		if columns[i] == "_id" {
			return true
		}
		if columns[j] == "_id" {
			return false
		}
		return columns[i] < columns[j]
	})

	rows := []map[string]any{}
	for _, doc := range docs {
		row := make(map[string]any, len(doc))
		for _, elem := range doc {
			row[elem.Key] = fmt.Sprintf("%v", elem.Value)
		}
		rows = append(rows, row)
	}

	return &domain.QueryResult{Columns: columns, Rows: rows}, nil
}

func orEmptyFilter(filter map[string]any) map[string]any {
	if filter == nil {
		return map[string]any{}
	}
	return filter
}

func affectedResult(n int64) *domain.QueryResult {
	return &domain.QueryResult{
		Columns: []string{"affectedRows"},
		Rows:    []map[string]any{{"affectedRows": n}},
	}
}
