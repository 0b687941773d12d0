package models

// LikeRequest is the JSON body of POST /api/posts/:postId/like.
type LikeRequest struct {
	Fingerprint string `json:"fingerprint"`
}

// LikeToggleResponse is returned after a toggle.
type LikeToggleResponse struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

// LikeStatusResponse is returned by the read-only status endpoint.
type LikeStatusResponse struct {
	Count int64 `json:"count"`
	Liked bool  `json:"liked"`
}

// LikeEvent is published whenever a toggle changes a post's count.
type LikeEvent struct {
	PostID    string `json:"post_id"`
	Count     int64  `json:"count"`
	Liked     bool   `json:"liked"`
	UpdatedAt string `json:"updated_at"`
}
