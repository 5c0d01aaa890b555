package kv

import (
	"context"
	"strings"
)

// Namespaced prefixes every key of an underlying Store with "<prefix>:".
type Namespaced struct {
	prefix string
	store  Store
}

// Namespace returns a Store whose keys are scoped under prefix.
func Namespace(store Store, prefix string) *Namespaced {
	return &Namespaced{
		prefix: strings.TrimSuffix(prefix, ":"),
		store:  store,
	}
}

// Key returns the fully qualified key stored in the underlying Store.
func (n *Namespaced) Key(key string) string {
	if n.prefix == "" {
		return key
	}
	return n.prefix + ":" + key
}

func (n *Namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return n.store.Get(ctx, n.Key(key))
}

func (n *Namespaced) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return n.store.Set(ctx, n.Key(key), value)
}

func (n *Namespaced) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return n.store.Delete(ctx, n.Key(key))
}

var _ Store = (*Namespaced)(nil)
