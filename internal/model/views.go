package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// OwnerSummary is the public projection of a user embedded in other views.
type OwnerSummary struct {
	ID        uuid.UUID `mapstructure:"id" json:"id"`
	Handle    string    `mapstructure:"handle" json:"handle"`
	FullName  string    `mapstructure:"full_name" json:"fullName"`
	AvatarURL string    `mapstructure:"avatar_url" json:"avatarUrl"`
}

// Account is the caller's own projected user record.
type Account struct {
	ID        uuid.UUID `mapstructure:"id" json:"id"`
	Handle    string    `mapstructure:"handle" json:"handle"`
	Email     string    `mapstructure:"email" json:"email"`
	FullName  string    `mapstructure:"full_name" json:"fullName"`
	AvatarURL string    `mapstructure:"avatar_url" json:"avatarUrl"`
	CoverURL  string    `mapstructure:"cover_url" json:"coverUrl"`
	CreatedAt time.Time `mapstructure:"created_at" json:"createdAt"`
	UpdatedAt time.Time `mapstructure:"updated_at" json:"updatedAt"`
}

// ChannelProfile is a user seen as a channel by a (possibly anonymous) caller.
type ChannelProfile struct {
	ID                uuid.UUID `mapstructure:"id" json:"id"`
	Handle            string    `mapstructure:"handle" json:"handle"`
	FullName          string    `mapstructure:"full_name" json:"fullName"`
	Email             string    `mapstructure:"email" json:"email"`
	AvatarURL         string    `mapstructure:"avatar_url" json:"avatarUrl"`
	CoverURL          string    `mapstructure:"cover_url" json:"coverUrl"`
	SubscriberCount   int64     `mapstructure:"subscriber_count" json:"subscriberCount"`
	SubscribedToCount int64     `mapstructure:"subscribed_to_count" json:"subscribedToCount"`
	IsSubscribed      bool      `mapstructure:"is_subscribed" json:"isSubscribed"`
}

// VideoDetail is a single video with engagement fields relative to the caller.
type VideoDetail struct {
	ID              uuid.UUID     `mapstructure:"id" json:"id"`
	Title           string        `mapstructure:"title" json:"title"`
	Description     string        `mapstructure:"description" json:"description"`
	MediaURL        string        `mapstructure:"media_url" json:"mediaUrl"`
	ThumbnailURL    string        `mapstructure:"thumbnail_url" json:"thumbnailUrl"`
	Duration        float64       `mapstructure:"duration" json:"duration"`
	Views           int64         `mapstructure:"views" json:"views"`
	OwnerID         uuid.UUID     `mapstructure:"owner_id" json:"ownerId"`
	Owner           *OwnerSummary `mapstructure:"owner" json:"owner"`
	CreatedAt       time.Time     `mapstructure:"created_at" json:"createdAt"`
	LikeCount       int64         `mapstructure:"like_count" json:"likeCount"`
	IsLiked         bool          `mapstructure:"is_liked" json:"isLiked"`
	SubscriberCount int64         `mapstructure:"subscriber_count" json:"subscriberCount"`
	IsSubscribed    bool          `mapstructure:"is_subscribed" json:"isSubscribed"`
}

// VideoSummary is a video as shown inside listings.
type VideoSummary struct {
	ID           uuid.UUID     `mapstructure:"id" json:"id"`
	Title        string        `mapstructure:"title" json:"title"`
	Description  string        `mapstructure:"description" json:"description"`
	ThumbnailURL string        `mapstructure:"thumbnail_url" json:"thumbnailUrl"`
	Duration     float64       `mapstructure:"duration" json:"duration"`
	Views        int64         `mapstructure:"views" json:"views"`
	CreatedAt    time.Time     `mapstructure:"created_at" json:"createdAt"`
	Owner        *OwnerSummary `mapstructure:"owner" json:"owner,omitempty"`
}

// LatestVideo is the newest upload of a channel.
type LatestVideo struct {
	ID           uuid.UUID `mapstructure:"id" json:"id"`
	Title        string    `mapstructure:"title" json:"title"`
	Views        int64     `mapstructure:"views" json:"views"`
	Duration     float64   `mapstructure:"duration" json:"duration"`
	ThumbnailURL string    `mapstructure:"thumbnail_url" json:"thumbnailUrl"`
}

// ChannelSummary is the counterpart user of a subscription edge.
type ChannelSummary struct {
	ID              uuid.UUID    `mapstructure:"id" json:"id"`
	Handle          string       `mapstructure:"handle" json:"handle"`
	FullName        string       `mapstructure:"full_name" json:"fullName"`
	AvatarURL       string       `mapstructure:"avatar_url" json:"avatarUrl"`
	SubscriberCount int64        `mapstructure:"subscriber_count" json:"subscriberCount"`
	IsSubscribed    bool         `mapstructure:"is_subscribed" json:"isSubscribed"`
	LatestVideo     *LatestVideo `mapstructure:"latest_video" json:"latestVideo,omitempty"`
}

// SubscriptionEntry is one row of a subscriber or subscribed-channel listing.
type SubscriptionEntry struct {
	ID        uuid.UUID       `mapstructure:"id" json:"id"`
	CreatedAt time.Time       `mapstructure:"created_at" json:"createdAt"`
	User      *ChannelSummary `mapstructure:"user" json:"user"`
}

// CommentView is a comment with its author and likes relative to the caller.
type CommentView struct {
	ID        uuid.UUID     `mapstructure:"id" json:"id"`
	Content   string        `mapstructure:"content" json:"content"`
	UpdatedAt time.Time     `mapstructure:"updated_at" json:"updatedAt"`
	Owner     *OwnerSummary `mapstructure:"owner" json:"owner"`
	LikeCount int64         `mapstructure:"like_count" json:"likeCount"`
	IsLiked   bool          `mapstructure:"is_liked" json:"isLiked"`
}

// TweetView is a tweet with its author and likes relative to the caller.
type TweetView struct {
	ID        uuid.UUID     `mapstructure:"id" json:"id"`
	Content   string        `mapstructure:"content" json:"content"`
	OwnerID   uuid.UUID     `mapstructure:"owner_id" json:"ownerId"`
	Owner     *OwnerSummary `mapstructure:"owner" json:"owner"`
	LikeCount int64         `mapstructure:"like_count" json:"likeCount"`
	IsLiked   bool          `mapstructure:"is_liked" json:"isLiked"`
	CreatedAt time.Time     `mapstructure:"created_at" json:"createdAt"`
	UpdatedAt time.Time     `mapstructure:"updated_at" json:"updatedAt"`
}

// PlaylistDetail is a playlist with its published videos and totals.
type PlaylistDetail struct {
	ID            uuid.UUID      `mapstructure:"id" json:"id"`
	Name          string         `mapstructure:"name" json:"name"`
	Description   string         `mapstructure:"description" json:"description"`
	CreatedAt     time.Time      `mapstructure:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `mapstructure:"updated_at" json:"updatedAt"`
	Owner         *OwnerSummary  `mapstructure:"owner" json:"owner"`
	Videos        []VideoSummary `mapstructure:"videos" json:"videos"`
	TotalVideos   int64          `mapstructure:"total_videos" json:"totalVideos"`
	TotalViews    int64          `mapstructure:"total_views" json:"totalViews"`
	TotalDuration float64        `mapstructure:"total_duration" json:"totalDuration"`
}

// PlaylistSummary is a playlist inside a per-user listing.
type PlaylistSummary struct {
	ID            uuid.UUID `mapstructure:"id" json:"id"`
	Name          string    `mapstructure:"name" json:"name"`
	Description   string    `mapstructure:"description" json:"description"`
	CreatedAt     time.Time `mapstructure:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `mapstructure:"updated_at" json:"updatedAt"`
	TotalVideos   int64     `mapstructure:"total_videos" json:"totalVideos"`
	TotalViews    int64     `mapstructure:"total_views" json:"totalViews"`
	TotalDuration float64   `mapstructure:"total_duration" json:"totalDuration"`
}

// LikedVideo is one entry of the caller's liked-videos listing.
type LikedVideo struct {
	LikeID  uuid.UUID     `mapstructure:"id" json:"likeId"`
	LikedAt time.Time     `mapstructure:"updated_at" json:"likedAt"`
	Video   *VideoSummary `mapstructure:"video" json:"video"`
}

// ChannelVideo is one of the caller's own videos with engagement counts.
type ChannelVideo struct {
	ID           uuid.UUID `mapstructure:"id" json:"id"`
	Title        string    `mapstructure:"title" json:"title"`
	ThumbnailURL string    `mapstructure:"thumbnail_url" json:"thumbnailUrl"`
	Duration     float64   `mapstructure:"duration" json:"duration"`
	Views        int64     `mapstructure:"views" json:"views"`
	Published    bool      `mapstructure:"published" json:"published"`
	CreatedAt    time.Time `mapstructure:"created_at" json:"createdAt"`
	LikeCount    int64     `mapstructure:"like_count" json:"likeCount"`
	CommentCount int64     `mapstructure:"comment_count" json:"commentCount"`
}

// ChannelStats aggregates the caller's channel.
type ChannelStats struct {
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalLikes       int64 `json:"totalLikes"`
	TotalViews       int64 `json:"totalViews"`
	TotalVideos      int64 `json:"totalVideos"`
	TotalComments    int64 `json:"totalComments"`
}

// ToggleResult reports the edge state after a toggle.
type ToggleResult struct {
	Active bool `json:"active"`
}

// Page is the result envelope of every listing.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	Found      bool `json:"found"`
}

// Tokens is issued on login and refresh.
type Tokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
