package drivers

import (
	"context"
	"encoding/json"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// MongoDB treats query as "<database>.<collection> <filterJSON>" and
// returns the matching documents (capped to 100) as a JSON array.
type MongoDB struct{}

func (MongoDB) Execute(ctx context.Context, config map[string]string, query string) (string, error) {
	uri := config["uri"]
	if uri == "" {
		return "", apperrors.NewValidationError("config", "mongodb connector requires \"uri\"", nil)
	}

	dbColl, filterJSON, found := strings.Cut(query, " ")
	if !found {
		dbColl = query
		filterJSON = "{}"
	}
	dbName, collName, ok := strings.Cut(dbColl, ".")
	if !ok {
		return "", apperrors.NewValidationError("query", "mongodb query requires \"db.collection filter\"", nil)
	}

	var filter bson.M
	if err := json.Unmarshal([]byte(strings.TrimSpace(filterJSON)), &filter); err != nil {
		return "", err
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return "", err
	}
	defer client.Disconnect(ctx)

	coll := client.Database(dbName).Collection(collName)
	cursor, err := coll.Find(ctx, filter, options.Find().SetLimit(100))
	if err != nil {
		return "", err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return "", err
	}

	b, err := json.Marshal(docs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
