package realtime

import (
	"context"
	"errors"
)

// Collection names the durable collections that emit change notifications.
type Collection string

const (
	Products   Collection = "products"
	Categories Collection = "categories"
	Banners    Collection = "banners"
	Addresses  Collection = "addresses"
	Orders     Collection = "orders"
)

// Topic identifies a stream of changes. Owner scopes per-user collections; an
// empty owner on Orders means every user's orders.
type Topic struct {
	Collection Collection
	Owner      string
}

func (t Topic) String() string {
	if t.Owner == "" {
		return string(t.Collection)
	}
	return string(t.Collection) + ":" + t.Owner
}

func ProductsTopic() Topic            { return Topic{Collection: Products} }
func CategoriesTopic() Topic          { return Topic{Collection: Categories} }
func BannersTopic() Topic             { return Topic{Collection: Banners} }
func AddressesTopic(uid string) Topic { return Topic{Collection: Addresses, Owner: uid} }
func UserOrdersTopic(uid string) Topic {
	return Topic{Collection: Orders, Owner: uid}
}
func AllOrdersTopic() Topic { return Topic{Collection: Orders} }

// Unsubscribe stops a subscription. Calling it more than once is safe.
type Unsubscribe func()

// Publisher announces that the data behind topics changed.
type Publisher interface {
	Publish(ctx context.Context, topics ...Topic) error
}

// ErrSubscriptionLost is reported when a feed stops delivering on its own, e.g.
// the listener connection dropped. No further changes arrive after it.
var ErrSubscriptionLost = errors.New("subscription lost")

// Feed delivers change notifications for a topic until unsubscribed. onLost, if
// not nil, is called at most once when the subscription ends without Unsubscribe
// or ctx cancellation.
type Feed interface {
	Subscribe(ctx context.Context, topic Topic, onChange func(), onLost func(error)) (Unsubscribe, error)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...Topic) error { return nil }

// NopPublisher discards every notification. Used when the store notifies on its own.
func NopPublisher() Publisher { return nopPublisher{} }
