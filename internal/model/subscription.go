package model

import "time"

// Subscription はある著者から別の著者への購読（フォロー）関係を表す。
// (SubscriberID, TargetID) の組は一意で、SubscriberID == TargetID は許可しない。
type Subscription struct {
	ID           string
	SubscriberID string
	TargetID     string
	CreatedAt    time.Time
}
