package models

import (
	"time"
)

// User is an account holding a points balance. The id comes from the identity provider.
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Bio       string    `db:"bio" json:"bio"`
	Points    int64     `db:"points" json:"points"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// CanAfford reports whether the balance covers the price
func (u *User) CanAfford(price int64) bool {
	return u.Points >= price
}

// Profile is the public view of a user. It carries no balance.
type Profile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Bio            string `json:"bio"`
	FollowerCount  int    `json:"followerCount"`
	FollowingCount int    `json:"followingCount"`
	IsFollowing    bool   `json:"isFollowing"`
}

// ProfileUpdate carries the fields a user may edit on their own account
type ProfileUpdate struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

// FollowResult reports the follow state after a follow or unfollow
type FollowResult struct {
	Success     bool `json:"success"`
	IsFollowing bool `json:"isFollowing"`
}
