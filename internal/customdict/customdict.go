// Package customdict keeps user-supplied dictionary words in a Redis set.
package customdict

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis set holding custom words.
const DefaultKey = "gramfix:custom_words"

// ErrInvalidWord is returned for words that are empty or contain whitespace.
var ErrInvalidWord = errors.New("customdict: word must be a single non-empty token")

// CustomDict wraps a Redis client to store custom dictionary words.
type CustomDict struct {
	client redis.UniversalClient
	key    string
}

// New creates a new CustomDict on key; an empty key means DefaultKey.
func New(client redis.UniversalClient, key string) *CustomDict {
	if key == "" {
		key = DefaultKey
	}
	return &CustomDict{client: client, key: key}
}

// Options addresses the Redis server.
type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Open connects to Redis and verifies the connection with a ping.
func Open(ctx context.Context, opt Options) (*CustomDict, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opt.Addr,
		Password: opt.Password,
		DB:       opt.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("customdict: ping %s: %w", opt.Addr, err)
	}
	return New(client, opt.Key), nil
}

// Key returns the Redis key of the set.
func (cd *CustomDict) Key() string { return cd.key }

// Add inserts words into the custom dictionary and reports how many were new.
func (cd *CustomDict) Add(ctx context.Context, words ...string) (int64, error) {
	members, err := normalizeAll(words)
	if err != nil {
		return 0, err
	}
	return cd.client.SAdd(ctx, cd.key, members...).Result()
}

// Remove deletes words from the custom dictionary and reports how many existed.
func (cd *CustomDict) Remove(ctx context.Context, words ...string) (int64, error) {
	members, err := normalizeAll(words)
	if err != nil {
		return 0, err
	}
	return cd.client.SRem(ctx, cd.key, members...).Result()
}

// All returns all words stored in the custom dictionary, sorted.
func (cd *CustomDict) All(ctx context.Context) ([]string, error) {
	words, err := cd.client.SMembers(ctx, cd.key).Result()
	if err != nil {
		return nil, fmt.Errorf("customdict: list %s: %w", cd.key, err)
	}
	sort.Strings(words)
	return words, nil
}

// Close releases the underlying client.
func (cd *CustomDict) Close() error { return cd.client.Close() }

// Normalize lowercases and trims word, rejecting empty or multi-token input.
func Normalize(word string) (string, error) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" || strings.IndexFunc(w, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidWord, word)
	}
	return w, nil
}

func normalizeAll(words []string) ([]any, error) {
	if len(words) == 0 {
		return nil, ErrInvalidWord
	}
	out := make([]any, 0, len(words))
	for _, w := range words {
		n, err := Normalize(w)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
