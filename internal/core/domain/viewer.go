package domain

// Viewer is the per-request identity snapshot supplied by the host CMS.
// UserID 0 means no authenticated session; ContentID is the download
// being rendered, used when callers pass no explicit download ID.
type Viewer struct {
	UserID    int64
	ContentID int64
}

func (v Viewer) Authenticated() bool {
	return v.UserID != 0
}
