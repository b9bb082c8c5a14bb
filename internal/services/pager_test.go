package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestFetchAllPages(t *testing.T) {
	t.Run("terminates when next is null and preserves page order", func(t *testing.T) {
		pages := map[string]cursorPage[string]{
			"page1": {Items: []string{"a", "b"}, Next: strPtr("page2")},
			"page2": {Items: []string{"c"}, Next: strPtr("page3")},
			"page3": {Items: []string{"d", "e"}, Next: nil},
		}

		var visited []string
		getJSON := func(ctx context.Context, url string, result any) error {
			visited = append(visited, url)
			page, ok := pages[url]
			if !ok {
				return fmt.Errorf("unexpected url %s", url)
			}
			*result.(*cursorPage[string]) = page
			return nil
		}

		items, err := fetchAllPages[string](context.Background(), "page1", getJSON)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []string{"a", "b", "c", "d", "e"}
		if len(items) != len(want) {
			t.Fatalf("expected %d items, got %d", len(want), len(items))
		}
		for i, item := range want {
			if items[i] != item {
				t.Errorf("item %d: expected %s, got %s", i, item, items[i])
			}
		}

		if len(visited) != 3 {
			t.Errorf("expected 3 page fetches, got %d", len(visited))
		}
	})

	t.Run("single page", func(t *testing.T) {
		getJSON := func(ctx context.Context, url string, result any) error {
			*result.(*cursorPage[int]) = cursorPage[int]{Items: []int{1, 2, 3}}
			return nil
		}

		items, err := fetchAllPages[int](context.Background(), "only", getJSON)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 3 {
			t.Errorf("expected 3 items, got %d", len(items))
		}
	})

	t.Run("propagates fetch errors", func(t *testing.T) {
		fetchErr := errors.New("boom")
		getJSON := func(ctx context.Context, url string, result any) error {
			return fetchErr
		}

		_, err := fetchAllPages[string](context.Background(), "page1", getJSON)
		if !errors.Is(err, fetchErr) {
			t.Errorf("expected fetch error to propagate, got %v", err)
		}
	})

	t.Run("mid-sequence error aborts the fetch", func(t *testing.T) {
		calls := 0
		getJSON := func(ctx context.Context, url string, result any) error {
			calls++
			if calls == 2 {
				return errors.New("page 2 failed")
			}
			*result.(*cursorPage[string]) = cursorPage[string]{Items: []string{"a"}, Next: strPtr("next")}
			return nil
		}

		_, err := fetchAllPages[string](context.Background(), "page1", getJSON)
		if err == nil {
			t.Fatal("expected error from second page")
		}
		if calls != 2 {
			t.Errorf("expected fetch to stop after failing page, got %d calls", calls)
		}
	})
}

func strPtr(s string) *string { return &s }
