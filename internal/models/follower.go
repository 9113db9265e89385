package models

import "time"

// FollowerEdge is a directed "follower_id follows user_id" relation.
// Edges are unique per (user_id, follower_id) and never self-referential.
type FollowerEdge struct {
	UserID     string    `db:"user_id" json:"user_id"`
	FollowerID string    `db:"follower_id" json:"follower_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
