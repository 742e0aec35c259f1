package gitlab

// Raw GitLab API records. Field sets cover what normalization consumes;
// everything else in the payload is ignored on decode.

// ProjectRecord is one entry from GET /projects.
type ProjectRecord struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`
	Permissions       struct {
		ProjectAccess *AccessRecord `json:"project_access"`
		GroupAccess   *AccessRecord `json:"group_access"`
	} `json:"permissions"`
}

// AccessRecord carries a GitLab membership access level.
type AccessRecord struct {
	AccessLevel int `json:"access_level"`
}

// GitLab access levels relevant to membership filtering.
const (
	AccessGuest      = 10
	AccessReporter   = 20
	AccessDeveloper  = 30
	AccessMaintainer = 40
	AccessOwner      = 50
)

// AccessLevel returns the highest access level granted directly or via
// group membership.
func (p ProjectRecord) AccessLevel() int {
	level := 0
	if p.Permissions.ProjectAccess != nil && p.Permissions.ProjectAccess.AccessLevel > level {
		level = p.Permissions.ProjectAccess.AccessLevel
	}
	if p.Permissions.GroupAccess != nil && p.Permissions.GroupAccess.AccessLevel > level {
		level = p.Permissions.GroupAccess.AccessLevel
	}
	return level
}

// UserRecord is the author/reviewer shape embedded in merge requests and
// notes.
type UserRecord struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// MergeRequest is one entry from the merge-requests endpoints.
type MergeRequest struct {
	ID                  int64        `json:"id"`
	IID                 int64        `json:"iid"`
	ProjectID           int64        `json:"project_id"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	State               string       `json:"state"`
	DetailedMergeStatus string       `json:"detailed_merge_status"`
	WorkInProgress      bool         `json:"work_in_progress"`
	WebURL              string       `json:"web_url"`
	UpdatedAt           string       `json:"updated_at"` // ISO-8601
	SourceBranch        string       `json:"source_branch"`
	Author              *UserRecord  `json:"author"`
	Reviewers           []UserRecord `json:"reviewers"`
}

// ChangeRecord is one changed file from the /changes endpoint. GitLab
// supplies per-file flags directly, unlike a raw text diff.
type ChangeRecord struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	Diff        string `json:"diff"`
	NewFile     bool   `json:"new_file"`
	RenamedFile bool   `json:"renamed_file"`
	DeletedFile bool   `json:"deleted_file"`
}

type changesResponse struct {
	Changes []ChangeRecord `json:"changes"`
}

// Note is one entry from the merge-request notes endpoint.
type Note struct {
	ID        int64         `json:"id"`
	Body      string        `json:"body"`
	System    bool          `json:"system"`
	CreatedAt string        `json:"created_at"` // ISO-8601
	Author    UserRecord    `json:"author"`
	Position  *NotePosition `json:"position,omitempty"`
}

// NotePosition anchors an inline note to a diff line.
type NotePosition struct {
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
	OldLine int    `json:"old_line"`
	NewLine int    `json:"new_line"`
}
