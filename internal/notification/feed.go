package notification

import (
	"context"
	"sort"

	"orderflow/internal/models"
)

// BusinessLister resolves which businesses a viewer operates; the order
// store provides this.
type BusinessLister interface {
	OwnedBusinessIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Feed is the merged, read-optimized view of a viewer's notifications.
type Feed struct {
	Records     []models.NotificationRecord `json:"notifications"`
	UnreadCount int64                       `json:"unreadCount"`
}

// Aggregator assembles a viewer's feed from their personal inbox plus the
// inbox of every business they own.
type Aggregator struct {
	store      *Store
	businesses BusinessLister
}

func NewAggregator(store *Store, businesses BusinessLister) *Aggregator {
	return &Aggregator{store: store, businesses: businesses}
}

// Load merges the viewer's personal records with each owned business's
// records, de-duplicates by record id, and sorts by creation time
// descending. The unread count is computed over the merged set so a record
// reachable via two paths is never counted twice.
func (a *Aggregator) Load(ctx context.Context, viewerID int64) (*Feed, error) {
	personal, err := a.store.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	businessIDs, err := a.businesses.OwnedBusinessIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(personal))
	merged := make([]models.NotificationRecord, 0, len(personal))
	appendUnique := func(records []models.NotificationRecord) {
		for _, rec := range records {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			merged = append(merged, rec)
		}
	}

	appendUnique(personal)
	for _, bid := range businessIDs {
		records, err := a.store.ListForBusiness(ctx, bid)
		if err != nil {
			return nil, err
		}
		appendUnique(records)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	var unread int64
	for _, rec := range merged {
		if !rec.IsRead {
			unread++
		}
	}

	return &Feed{Records: merged, UnreadCount: unread}, nil
}

// UnreadCount sums the viewer's cached per-inbox unread counters without
// materializing the feed. Inboxes are disjoint (a record belongs to exactly
// one owner) so the sum matches the merged count.
func (a *Aggregator) UnreadCount(ctx context.Context, viewerID int64) (int64, error) {
	total, err := a.store.UnreadCountForUser(ctx, viewerID)
	if err != nil {
		return 0, err
	}

	businessIDs, err := a.businesses.OwnedBusinessIDs(ctx, viewerID)
	if err != nil {
		return 0, err
	}
	for _, bid := range businessIDs {
		count, err := a.store.UnreadCountForBusiness(ctx, bid)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

// MarkAllRead clears unread state for the viewer. With a business id scope
// it clears that business inbox only; otherwise it clears the personal
// inbox. It may be invoked once per owned business plus once for the
// personal inbox without double-counting or erroring on an empty scope.
func (a *Aggregator) MarkAllRead(ctx context.Context, viewerID int64, businessID *int64) error {
	if businessID != nil {
		return a.store.MarkAllReadForBusiness(ctx, *businessID)
	}
	return a.store.MarkAllReadForUser(ctx, viewerID)
}
