package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type NewMongoClientParams struct {
	// URI takes precedence when set, otherwise built from host and port
	URI       string
	MongoHost string
	MongoPort string
}

func NewMongoClient(ctx context.Context, params NewMongoClientParams) (*mongo.Client, error) {
	uri := params.URI
	if uri == "" {
		uri = fmt.Sprintf("mongodb://%s:%s", params.MongoHost, params.MongoPort)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	return client, nil
}

func Ping(ctx context.Context, client *mongo.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return client.Ping(pingCtx, readpref.Primary())
}
