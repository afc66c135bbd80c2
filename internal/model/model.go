// Package model defines domain entities used by services and stores.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Collection names of the entity store.
const (
	Users         = "users"
	Videos        = "videos"
	Comments      = "comments"
	Tweets        = "tweets"
	Likes         = "likes"
	Subscriptions = "subscriptions"
	Playlists     = "playlists"
)

// TargetKind tags the entity a Like points at.
type TargetKind string

// Like target kinds.
const (
	KindVideo   TargetKind = "video"
	KindComment TargetKind = "comment"
	KindTweet   TargetKind = "tweet"
)

// Valid reports whether k is one of the known target kinds.
func (k TargetKind) Valid() bool {
	switch k {
	case KindVideo, KindComment, KindTweet:
		return true
	}
	return false
}

// Collection returns the collection holding targets of kind k.
func (k TargetKind) Collection() string {
	switch k {
	case KindVideo:
		return Videos
	case KindComment:
		return Comments
	case KindTweet:
		return Tweets
	}
	return ""
}

// User is an account; it doubles as a channel when subscribed to.
type User struct {
	ID           uuid.UUID   `mapstructure:"id" json:"id"`
	Handle       string      `mapstructure:"handle" json:"handle"` // unique, lowercase
	Email        string      `mapstructure:"email" json:"email"`   // unique, lowercase
	FullName     string      `mapstructure:"full_name" json:"fullName"`
	PasswordHash string      `mapstructure:"password_hash" json:"-"`
	AvatarURL    string      `mapstructure:"avatar_url" json:"avatarUrl"`
	CoverURL     string      `mapstructure:"cover_url" json:"coverUrl"`
	WatchHistory []uuid.UUID `mapstructure:"watch_history" json:"watchHistory"` // ordered set of video ids
	RefreshToken string      `mapstructure:"refresh_token" json:"-"`
	CreatedAt    time.Time   `mapstructure:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `mapstructure:"updated_at" json:"updatedAt"`
}

// Fields returns the stored representation of u.
func (u User) Fields() map[string]any {
	wh := u.WatchHistory
	if wh == nil {
		wh = []uuid.UUID{}
	}
	return map[string]any{
		"id":            u.ID,
		"handle":        u.Handle,
		"email":         u.Email,
		"full_name":     u.FullName,
		"password_hash": u.PasswordHash,
		"avatar_url":    u.AvatarURL,
		"cover_url":     u.CoverURL,
		"watch_history": wh,
		"refresh_token": u.RefreshToken,
		"created_at":    u.CreatedAt,
		"updated_at":    u.UpdatedAt,
	}
}

// Video is an uploaded media item owned by a user.
type Video struct {
	ID           uuid.UUID `mapstructure:"id" json:"id"`
	Title        string    `mapstructure:"title" json:"title"`
	Description  string    `mapstructure:"description" json:"description"`
	MediaURL     string    `mapstructure:"media_url" json:"mediaUrl"`
	ThumbnailURL string    `mapstructure:"thumbnail_url" json:"thumbnailUrl"`
	Duration     float64   `mapstructure:"duration" json:"duration"` // seconds
	Views        int64     `mapstructure:"views" json:"views"`
	Published    bool      `mapstructure:"published" json:"published"`
	OwnerID      uuid.UUID `mapstructure:"owner_id" json:"ownerId"`
	CreatedAt    time.Time `mapstructure:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `mapstructure:"updated_at" json:"updatedAt"`
}

// Fields returns the stored representation of v.
func (v Video) Fields() map[string]any {
	return map[string]any{
		"id":            v.ID,
		"title":         v.Title,
		"description":   v.Description,
		"media_url":     v.MediaURL,
		"thumbnail_url": v.ThumbnailURL,
		"duration":      v.Duration,
		"views":         v.Views,
		"published":     v.Published,
		"owner_id":      v.OwnerID,
		"created_at":    v.CreatedAt,
		"updated_at":    v.UpdatedAt,
	}
}

// Comment is a user's text attached to a video.
type Comment struct {
	ID        uuid.UUID `mapstructure:"id" json:"id"`
	Content   string    `mapstructure:"content" json:"content"`
	OwnerID   uuid.UUID `mapstructure:"owner_id" json:"ownerId"`
	VideoID   uuid.UUID `mapstructure:"video_id" json:"videoId"`
	CreatedAt time.Time `mapstructure:"created_at" json:"createdAt"`
	UpdatedAt time.Time `mapstructure:"updated_at" json:"updatedAt"`
}

// Fields returns the stored representation of c.
func (c Comment) Fields() map[string]any {
	return map[string]any{
		"id":         c.ID,
		"content":    c.Content,
		"owner_id":   c.OwnerID,
		"video_id":   c.VideoID,
		"created_at": c.CreatedAt,
		"updated_at": c.UpdatedAt,
	}
}

// Tweet is a short standalone post.
type Tweet struct {
	ID        uuid.UUID `mapstructure:"id" json:"id"`
	Content   string    `mapstructure:"content" json:"content"`
	OwnerID   uuid.UUID `mapstructure:"owner_id" json:"ownerId"`
	CreatedAt time.Time `mapstructure:"created_at" json:"createdAt"`
	UpdatedAt time.Time `mapstructure:"updated_at" json:"updatedAt"`
}

// Fields returns the stored representation of t.
func (t Tweet) Fields() map[string]any {
	return map[string]any{
		"id":         t.ID,
		"content":    t.Content,
		"owner_id":   t.OwnerID,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	}
}

// Like is a polymorphic edge from a user to exactly one target.
type Like struct {
	ID         uuid.UUID  `mapstructure:"id" json:"id"`
	LikerID    uuid.UUID  `mapstructure:"liker_id" json:"likerId"`
	TargetKind TargetKind `mapstructure:"target_kind" json:"targetKind"`
	TargetID   uuid.UUID  `mapstructure:"target_id" json:"targetId"`
	CreatedAt  time.Time  `mapstructure:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `mapstructure:"updated_at" json:"updatedAt"`
}

// Fields returns the stored representation of l.
func (l Like) Fields() map[string]any {
	return map[string]any{
		"id":          l.ID,
		"liker_id":    l.LikerID,
		"target_kind": string(l.TargetKind),
		"target_id":   l.TargetID,
		"created_at":  l.CreatedAt,
		"updated_at":  l.UpdatedAt,
	}
}

// Subscription is a directed edge from a subscriber to a channel.
type Subscription struct {
	ID           uuid.UUID `mapstructure:"id" json:"id"`
	SubscriberID uuid.UUID `mapstructure:"subscriber_id" json:"subscriberId"`
	ChannelID    uuid.UUID `mapstructure:"channel_id" json:"channelId"`
	CreatedAt    time.Time `mapstructure:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `mapstructure:"updated_at" json:"updatedAt"`
}

// Fields returns the stored representation of s.
func (s Subscription) Fields() map[string]any {
	return map[string]any{
		"id":            s.ID,
		"subscriber_id": s.SubscriberID,
		"channel_id":    s.ChannelID,
		"created_at":    s.CreatedAt,
		"updated_at":    s.UpdatedAt,
	}
}

// Playlist is an owned, ordered set of videos.
type Playlist struct {
	ID          uuid.UUID   `mapstructure:"id" json:"id"`
	Name        string      `mapstructure:"name" json:"name"`
	Description string      `mapstructure:"description" json:"description"`
	OwnerID     uuid.UUID   `mapstructure:"owner_id" json:"ownerId"`
	VideoIDs    []uuid.UUID `mapstructure:"video_ids" json:"videoIds"`
	CreatedAt   time.Time   `mapstructure:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `mapstructure:"updated_at" json:"updatedAt"`
}

// Fields returns the stored representation of p.
func (p Playlist) Fields() map[string]any {
	ids := p.VideoIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"owner_id":    p.OwnerID,
		"video_ids":   ids,
		"created_at":  p.CreatedAt,
		"updated_at":  p.UpdatedAt,
	}
}
