package horizon

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"time"

	"github.com/mtlprog/divtracker/internal/domain"
)

// OperationPages walks an account's operation history oldest first.
//
// The sequence is lazy and finite: it ends on an empty page, a missing next
// link, after MaxPages pages, when the consumer stops, or on the first error
// (yielded once with a zero page). ctx is checked before every page fetch.
func (c *Client) OperationPages(ctx context.Context, accountID string) iter.Seq2[OperationsPage, error] {
	return func(yield func(OperationsPage, error) bool) {
		path := fmt.Sprintf("/accounts/%s/operations?order=asc&limit=%d", accountID, c.pageSize)

		for n := 1; n <= c.maxPages; n++ {
			if err := ctx.Err(); err != nil {
				yield(OperationsPage{}, err)
				return
			}

			var resp operationsResponse
			if err := c.getJSON(ctx, EndpointOperations, path, &resp); err != nil {
				yield(OperationsPage{}, fmt.Errorf("fetching operations page %d for %s: %w", n, accountID, err))
				return
			}

			if !yield(OperationsPage{Number: n, Records: resp.Embedded.Records}, nil) {
				return
			}

			if len(resp.Embedded.Records) == 0 || resp.Links.Next.Href == "" {
				return
			}

			u, err := url.Parse(resp.Links.Next.Href)
			if err != nil {
				yield(OperationsPage{}, fmt.Errorf("parsing pagination link %q: %w", resp.Links.Next.Href, err))
				return
			}
			path = u.Path + "?" + u.RawQuery
		}

		slog.Debug("operation history traversal reached page ceiling",
			"account", accountID, "max_pages", c.maxPages, "page_size", c.pageSize)
	}
}

// FindFirstOperation returns the timestamp of the oldest payment or offer
// operation referencing asset. found is false when the history was exhausted
// or the page ceiling was reached without a match; that is not an error.
// Any page failure aborts the traversal and is returned as err.
func (c *Client) FindFirstOperation(ctx context.Context, accountID string, asset domain.AssetInfo) (at time.Time, found bool, err error) {
	for page, err := range c.OperationPages(ctx, accountID) {
		if err != nil {
			return time.Time{}, false, err
		}
		for _, op := range page.Records {
			if !op.Involves(asset) {
				continue
			}
			t, err := op.Time()
			if err != nil {
				return time.Time{}, false, fmt.Errorf("parsing created_at %q of operation %s: %w", op.CreatedAt, op.ID, err)
			}
			return t, true, nil
		}
	}
	return time.Time{}, false, nil
}
