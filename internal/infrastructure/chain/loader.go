package chain

import (
	"bytes"
	"context"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

const mergedABIKey = "merged-abi"

// DocumentSource yields the raw facet ABI document.
type DocumentSource interface {
	ReadDocument(ctx context.Context) ([]byte, error)
}

// FileSource reads the document from the local filesystem.
type FileSource struct {
	Path string
}

func (f FileSource) ReadDocument(_ context.Context) ([]byte, error) {
	return os.ReadFile(f.Path)
}

type loadedABI struct {
	parsed abi.ABI
	merged []byte
}

// ABILoader merges and parses the facet document, caching the result for ttl.
type ABILoader struct {
	source DocumentSource
	cache  *cache.Cache
}

func NewABILoader(source DocumentSource, ttl time.Duration) *ABILoader {
	return &ABILoader{source: source, cache: cache.New(ttl, 2*ttl)}
}

// Load returns the parsed merged ABI.
func (l *ABILoader) Load(ctx context.Context) (abi.ABI, error) {
	la, err := l.load(ctx)
	if err != nil {
		return abi.ABI{}, err
	}
	return la.parsed, nil
}

// Merged returns the merged ABI array as JSON.
func (l *ABILoader) Merged(ctx context.Context) ([]byte, error) {
	la, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return la.merged, nil
}

// Invalidate drops the cached ABI so the next call re-reads the source.
func (l *ABILoader) Invalidate() {
	l.cache.Delete(mergedABIKey)
}

func (l *ABILoader) load(ctx context.Context) (*loadedABI, error) {
	if v, ok := l.cache.Get(mergedABIKey); ok {
		return v.(*loadedABI), nil
	}
	doc, err := l.source.ReadDocument(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read ABI document")
	}
	parsed, merged, err := ParseMerged(doc)
	if err != nil {
		return nil, err
	}
	la := &loadedABI{parsed: parsed, merged: merged}
	l.cache.SetDefault(mergedABIKey, la)
	return la, nil
}

// ParseMerged merges a facet document and checks the result is an ABI
// go-ethereum can bind against.
func ParseMerged(doc []byte) (abi.ABI, []byte, error) {
	merged, err := MergeDocument(doc)
	if err != nil {
		return abi.ABI{}, nil, err
	}
	parsed, err := abi.JSON(bytes.NewReader(merged))
	if err != nil {
		return abi.ABI{}, nil, errors.Wrap(err, "parse merged ABI")
	}
	return parsed, merged, nil
}
