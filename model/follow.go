package model

import "time"

// Follow is a follower -> followee edge in the follow graph.
type Follow struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	FollowerID int64     `json:"followerId" gorm:"index:idx_follower_followee,unique;not null"`
	FolloweeID int64     `json:"followeeId" gorm:"index:idx_follower_followee,unique;not null"`
	CreatedAt  time.Time `json:"createdAt"`
}
