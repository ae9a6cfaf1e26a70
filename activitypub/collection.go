package activitypub

import (
	"fmt"
)

const (
	// CollectionPageSize is the fixed page size served to peers.
	CollectionPageSize = 10
	// CollectionMaxPageSize caps a requested page size regardless of
	// what the client asked for.
	CollectionMaxPageSize = 25
)

// CollectionFetcher is a paged data accessor: given a start offset and
// a count it returns the collection's total size and the slice of
// serializable items.
type CollectionFetcher func(start, count int) (total int, items []interface{}, err error)

// MakeCollection builds the federation representation of a paginated
// collection. Page 0 yields the summary document (totalItems plus a
// first-page link); page N yields an OrderedCollectionPage. Out-of-range
// pages yield an empty items page with no next link, never an error.
func MakeCollection(collectionURL string, page, size int, fetch CollectionFetcher) (map[string]interface{}, error) {
	if size <= 0 {
		size = CollectionPageSize
	}
	if size > CollectionMaxPageSize {
		size = CollectionMaxPageSize
	}

	if page <= 0 {
		total, _, err := fetch(0, 0)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"@context":   ActivityPubContext,
			"id":         collectionURL,
			"type":       "OrderedCollection",
			"totalItems": total,
			"first":      fmt.Sprintf("%s?page=1", collectionURL),
		}, nil
	}

	start := (page - 1) * size
	total, items, err := fetch(start, size)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []interface{}{}
	}

	result := map[string]interface{}{
		"@context":     ActivityPubContext,
		"id":           fmt.Sprintf("%s?page=%d", collectionURL, page),
		"type":         "OrderedCollectionPage",
		"partOf":       collectionURL,
		"totalItems":   total,
		"orderedItems": items,
	}

	if start+len(items) < total {
		result["next"] = fmt.Sprintf("%s?page=%d", collectionURL, page+1)
	}
	if page > 1 {
		result["prev"] = fmt.Sprintf("%s?page=%d", collectionURL, page-1)
	}

	return result, nil
}
