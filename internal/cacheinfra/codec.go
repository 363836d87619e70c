package cacheinfra

import (
	perr "github.com/jmgilman/go/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-output-cache/cache"
)

func encodeItem(item *cache.OutputCacheItem) ([]byte, error) {
	b, err := msgpack.Marshal(item)
	if err != nil {
		return nil, perr.Wrap(err, perr.CodeInternal, "encode output cache item")
	}
	return b, nil
}

func decodeItem(b []byte) (*cache.OutputCacheItem, error) {
	var item cache.OutputCacheItem
	if err := msgpack.Unmarshal(b, &item); err != nil {
		return nil, perr.Wrap(err, perr.CodeInternal, "decode output cache item")
	}
	return &item, nil
}
