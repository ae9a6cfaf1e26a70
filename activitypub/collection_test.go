package activitypub

import (
	"fmt"
	"testing"
)

// fakeFetcher serves a fixed list of item URIs.
func fakeFetcher(total int) CollectionFetcher {
	return func(start, count int) (int, []interface{}, error) {
		if count == 0 {
			return total, nil, nil
		}
		var items []interface{}
		for i := start; i < start+count && i < total; i++ {
			items = append(items, fmt.Sprintf("https://local.example/items/%d", i))
		}
		return total, items, nil
	}
}

func TestMakeCollectionSummary(t *testing.T) {
	doc, err := MakeCollection("https://local.example/outbox", 0, CollectionPageSize, fakeFetcher(42))
	if err != nil {
		t.Fatalf("MakeCollection failed: %v", err)
	}
	if doc["type"] != "OrderedCollection" {
		t.Errorf("Expected OrderedCollection, got %v", doc["type"])
	}
	if doc["totalItems"] != 42 {
		t.Errorf("Expected totalItems 42, got %v", doc["totalItems"])
	}
	if doc["first"] != "https://local.example/outbox?page=1" {
		t.Errorf("Unexpected first link: %v", doc["first"])
	}
}

func TestMakeCollectionRoundTrip(t *testing.T) {
	// Walk every page and verify all items come back exactly once, for
	// sizes around the page boundary.
	sizes := []int{0, 1, CollectionPageSize - 1, CollectionPageSize, CollectionPageSize + 1, 5 * CollectionPageSize}

	for _, total := range sizes {
		t.Run(fmt.Sprintf("total=%d", total), func(t *testing.T) {
			fetch := fakeFetcher(total)
			seen := make(map[string]bool)

			for page := 1; ; page++ {
				doc, err := MakeCollection("https://local.example/outbox", page, CollectionPageSize, fetch)
				if err != nil {
					t.Fatalf("Page %d failed: %v", page, err)
				}
				if doc["type"] != "OrderedCollectionPage" {
					t.Fatalf("Expected OrderedCollectionPage, got %v", doc["type"])
				}
				if doc["totalItems"] != total {
					t.Errorf("Page %d: expected totalItems %d, got %v", page, total, doc["totalItems"])
				}

				items := doc["orderedItems"].([]interface{})
				for _, item := range items {
					uri := item.(string)
					if seen[uri] {
						t.Errorf("Item %s served twice", uri)
					}
					seen[uri] = true
				}

				if _, hasNext := doc["next"]; !hasNext {
					break
				}
			}

			if len(seen) != total {
				t.Errorf("Expected %d items across all pages, got %d", total, len(seen))
			}
		})
	}
}

func TestMakeCollectionOutOfRangePage(t *testing.T) {
	doc, err := MakeCollection("https://local.example/outbox", 99, CollectionPageSize, fakeFetcher(5))
	if err != nil {
		t.Fatalf("MakeCollection failed: %v", err)
	}
	items := doc["orderedItems"].([]interface{})
	if len(items) != 0 {
		t.Errorf("Expected empty page, got %d items", len(items))
	}
	if _, hasNext := doc["next"]; hasNext {
		t.Error("Out-of-range page must not link to a next page")
	}
}

func TestMakeCollectionClampsPageSize(t *testing.T) {
	doc, err := MakeCollection("https://local.example/outbox", 1, 1000, fakeFetcher(5*CollectionMaxPageSize))
	if err != nil {
		t.Fatalf("MakeCollection failed: %v", err)
	}
	items := doc["orderedItems"].([]interface{})
	if len(items) != CollectionMaxPageSize {
		t.Errorf("Expected page clamped to %d items, got %d", CollectionMaxPageSize, len(items))
	}
}

func TestMakeCollectionPrevLink(t *testing.T) {
	doc, err := MakeCollection("https://local.example/outbox", 2, CollectionPageSize, fakeFetcher(3*CollectionPageSize))
	if err != nil {
		t.Fatalf("MakeCollection failed: %v", err)
	}
	if doc["prev"] != "https://local.example/outbox?page=1" {
		t.Errorf("Expected prev link to page 1, got %v", doc["prev"])
	}
	if doc["next"] != "https://local.example/outbox?page=3" {
		t.Errorf("Expected next link to page 3, got %v", doc["next"])
	}
}
