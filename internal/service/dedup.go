package service

import (
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

// DedupResult partitions a batch of imported records.
type DedupResult struct {
	ToInsert   []model.Transaction
	Duplicates []model.Transaction
	// Unkeyed holds the records of ToInsert that carry no external id and cannot be
	// checked against earlier imports.
	Unkeyed []model.Transaction
}

// Deduplicate separates records already present in existing from new ones.
//
// A record is a duplicate when a live entry of existing, or an earlier record of the same
// batch, has the same (external_id, source) pair. Records without an external id are never
// duplicates.
func Deduplicate(records, existing []model.Transaction) DedupResult {
	seen := make(map[model.DedupKey]struct{}, len(existing))
	for _, t := range existing {
		if !t.IsLive() {
			continue
		}
		if key, ok := t.DedupKey(); ok {
			seen[key] = struct{}{}
		}
	}

	var result DedupResult
	for _, r := range records {
		key, ok := r.DedupKey()
		if !ok {
			result.ToInsert = append(result.ToInsert, r)
			result.Unkeyed = append(result.Unkeyed, r)
			continue
		}
		if _, dup := seen[key]; dup {
			result.Duplicates = append(result.Duplicates, r)
			continue
		}
		seen[key] = struct{}{}
		result.ToInsert = append(result.ToInsert, r)
	}
	return result
}
