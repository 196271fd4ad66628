// Package drivers implements the concrete connector backends behind the
// gateway contract: one small adapter per backend technology, each
// translating its own client's result shape into the JSON string the
// rest of the engine (jsonpath, assertion) expects.
package drivers

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// Redis runs a single command (its first word is the Redis command
// name, the remainder its arguments) against one addr/db, opening a
// fresh client per call since connector configs are small and
// short-lived within a run.
type Redis struct{}

func (Redis) Execute(ctx context.Context, config map[string]string, query string) (string, error) {
	addr := config["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config["password"],
		DB:       0,
	})
	defer client.Close()

	args := tokenize(query)
	if len(args) == 0 {
		return "", apperrors.NewValidationError("query", "empty redis command", nil)
	}

	cmdArgs := make([]interface{}, len(args))
	for i, a := range args {
		cmdArgs[i] = a
	}

	val, err := client.Do(ctx, cmdArgs...).Result()
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(val)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// tokenize splits a query string on whitespace, treating it as a flat
// command-plus-arguments list (no quoting grammar; connector queries are
// simple by construction).
func tokenize(query string) []string {
	var out []string
	var cur []byte
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = nil
		}
	}
	for _, r := range query {
		if r == ' ' || r == '\t' || r == '\n' {
			flush()
			continue
		}
		cur = append(cur, byte(r))
	}
	flush()
	return out
}
