package broker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

// FetchResult is the outcome of a complete fetch.
type FetchResult struct {
	Transactions []model.Transaction
	// Raw counts records received from the broker before normalization and filtering.
	Raw int
	// Malformed counts records that could not be normalized.
	Malformed int
	// Skipped counts records dropped by the broker's product filter.
	Skipped int
	// OutOfRange counts normalized records outside the requested date range.
	OutOfRange int
	Pages      int
	State      State
}

// Fetch authenticates b and reads its pages in order, normalizing every record and
// keeping those dated within dr.
//
// The loop ends when a page has no next cursor, a page is empty, or MaxPages pages have
// been read. Malformed records are logged and skipped. An authentication or page error
// ends the fetch in StateFailed and is returned together with the partial result.
func Fetch(ctx context.Context, b Broker, dr model.DateRange, log zerolog.Logger) (FetchResult, error) {
	log = log.With().Str("broker", b.Name()).Logger()
	result := FetchResult{State: StateUnauthenticated}

	if err := b.Authenticate(ctx); err != nil {
		result.State = StateFailed
		return result, err
	}
	result.State = StateAuthenticated

	cursor := ""
	for result.Pages < MaxPages {
		if err := ctx.Err(); err != nil {
			result.State = StateFailed
			return result, err
		}
		result.State = StatePaginating

		page, err := b.FetchPage(ctx, cursor)
		if err != nil {
			result.State = StateFailed
			return result, fmt.Errorf("failed to fetch page %d: %w", result.Pages+1, err)
		}
		result.Pages++
		result.Raw += len(page.Records) + page.Skipped
		result.Skipped += page.Skipped

		for _, raw := range page.Records {
			tx, err := b.Normalize(raw)
			if err != nil {
				result.Malformed++
				log.Warn().Err(err).Str("record", truncate(raw, maxLoggedBody)).Msg("skipping malformed record")
				continue
			}
			if !dr.Contains(tx.Date) {
				result.OutOfRange++
				continue
			}
			result.Transactions = append(result.Transactions, tx)
		}

		log.Debug().
			Int("page", result.Pages).
			Int("records", len(page.Records)).
			Int("total", len(result.Transactions)).
			Msg("fetched page")

		if len(page.Records)+page.Skipped == 0 || page.NextCursor == "" {
			result.State = StateDone
			return result, nil
		}
		cursor = page.NextCursor
	}

	log.Warn().Int("max_pages", MaxPages).Msg("page limit reached, stopping pagination")
	result.State = StateDone
	return result, nil
}
