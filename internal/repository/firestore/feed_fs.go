package firestore

import (
	"context"
	"fmt"

	"storefront/internal/realtime"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FeedFS turns Firestore query snapshot listeners into realtime change
// notifications. Writes made through any client, including the mobile apps,
// are seen.
type FeedFS struct {
	Client *firestore.Client
	logger *zap.Logger
}

func NewFeedFS(client *firestore.Client, logger *zap.Logger) *FeedFS {
	return &FeedFS{Client: client, logger: logger}
}

func (f *FeedFS) query(topic realtime.Topic) firestore.Query {
	switch topic.Collection {
	case realtime.Addresses:
		return f.Client.Collection(colUsers).Doc(topic.Owner).Collection(colAddresses).Query
	case realtime.Orders:
		if topic.Owner == "" {
			return f.Client.CollectionGroup(colOrders).Query
		}
		return f.Client.Collection(colUsers).Doc(topic.Owner).Collection(colOrders).Query
	default:
		return f.Client.Collection(string(topic.Collection)).Query
	}
}

// Subscribe calls onChange for every snapshot that carries changes. The first
// snapshot also triggers it, which covers writes that land between subscribing
// and the caller's initial load. A listener that fails reports through onLost.
func (f *FeedFS) Subscribe(ctx context.Context, topic realtime.Topic, onChange func(), onLost func(error)) (realtime.Unsubscribe, error) {
	if f == nil || f.Client == nil {
		return nil, errNilClient
	}

	ctx, cancel := context.WithCancel(ctx)
	it := f.query(topic).Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					f.logger.Warn("Snapshot listener stopped",
						zap.String("topic", topic.String()),
						zap.Error(err),
					)
					if onLost != nil {
						onLost(fmt.Errorf("%w: %s: %w", realtime.ErrSubscriptionLost, topic, err))
					}
				}
				return
			}
			if len(snap.Changes) == 0 {
				continue
			}
			onChange()
		}
	}()

	return realtime.Unsubscribe(cancel), nil
}

var _ realtime.Feed = (*FeedFS)(nil)
