package services

import "context"

// cursorPage is the provider's paginated collection wrapper. Next is the URL
// of the following page, absent on the final page.
type cursorPage[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

// fetchAllPages follows next cursors starting from startURL and collects
// every item in provider order. getJSON is the authorized GET-and-decode
// primitive; any error from it aborts the whole fetch.
func fetchAllPages[T any](ctx context.Context, startURL string, getJSON func(context.Context, string, any) error) ([]T, error) {
	var items []T

	next := startURL
	for next != "" {
		var page cursorPage[T]
		if err := getJSON(ctx, next, &page); err != nil {
			return nil, err
		}

		items = append(items, page.Items...)

		if page.Next == nil {
			break
		}
		next = *page.Next
	}

	return items, nil
}
