package models

import "time"

// PostMetric holds the interaction counters of a post. Counters are replaced
// wholesale when an authoritative update arrives, never patched field by field.
type PostMetric struct {
	LikeCount    int `json:"like_count"`
	CommentCount int `json:"comment_count"`
	ShareCount   int `json:"share_count"`
}

type Post struct {
	ID          string     `json:"id"`
	Author      User       `json:"author"`
	Content     string     `json:"content"`
	Attachments []string   `json:"attachments,omitempty"`
	Metric      PostMetric `json:"metric"`
	CreatedAt   time.Time  `json:"created_at"`
	IsLiked     bool       `json:"is_liked"`
}

type User struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Nick       string  `json:"nick"`
	Avatar     *string `json:"avatar"`
	IsVerified bool    `json:"is_verified"`
}
