package models

import "fmt"

// Post collection kinds. Submissions live under a challenge; stories are
// top-level, so their parent id is always zero.
const (
	KindSubmissions = "submissions"
	KindStories     = "stories"
)

// Ref is the composite path of an interactive post: collection kind,
// parent id, post id. It addresses exactly one aggregate document.
type Ref struct {
	Kind     string `json:"kind"`
	ParentID int    `json:"parent_id"`
	PostID   int    `json:"post_id"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%d/%d", r.Kind, r.ParentID, r.PostID)
}

func (r Ref) Valid() bool {
	switch r.Kind {
	case KindSubmissions:
		return r.ParentID > 0 && r.PostID > 0
	case KindStories:
		return r.ParentID == 0 && r.PostID > 0
	default:
		return false
	}
}

// SubmissionRef addresses a challenge submission.
func SubmissionRef(challengeID, submissionID int) Ref {
	return Ref{Kind: KindSubmissions, ParentID: challengeID, PostID: submissionID}
}

// StoryRef addresses a story.
func StoryRef(storyID int) Ref {
	return Ref{Kind: KindStories, PostID: storyID}
}
