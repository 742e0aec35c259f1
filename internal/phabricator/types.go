package phabricator

// Raw Conduit API records. Shapes follow the differential.revision.search,
// transaction.search, and user.search result payloads.

// Revision is one entry from differential.revision.search.
type Revision struct {
	ID     int64  `json:"id"`
	Type   string `json:"type"`
	PHID   string `json:"phid"`
	Fields struct {
		Title      string `json:"title"`
		AuthorPHID string `json:"authorPHID"`
		Status     struct {
			Value  string `json:"value"`
			Name   string `json:"name"`
			Closed bool   `json:"closed"`
		} `json:"status"`
		RepositoryPHID string `json:"repositoryPHID"`
		DiffPHID       string `json:"diffPHID"`
		Summary        string `json:"summary"`
		IsDraft        bool   `json:"isDraft"`
		DateCreated    int64  `json:"dateCreated"`  // epoch seconds
		DateModified   int64  `json:"dateModified"` // epoch seconds
	} `json:"fields"`
	Attachments struct {
		Reviewers struct {
			Reviewers []ReviewerRecord `json:"reviewers"`
		} `json:"reviewers"`
	} `json:"attachments"`
}

// ReviewerRecord is a reviewer entry from the reviewers attachment. Only the
// PHID is returned; names need a separate identity lookup.
type ReviewerRecord struct {
	ReviewerPHID string `json:"reviewerPHID"`
	Status       string `json:"status"`
	IsBlocking   bool   `json:"isBlocking"`
}

// DiffRecord is one entry from differential.diff.search, used to resolve a
// revision's current diff ID for the raw-diff endpoint.
type DiffRecord struct {
	ID     int64  `json:"id"`
	PHID   string `json:"phid"`
	Fields struct {
		RevisionPHID string `json:"revisionPHID"`
		DateModified int64  `json:"dateModified"`
	} `json:"fields"`
}

// Transaction is one entry from transaction.search. Comment-bearing types
// are "comment" (general) and "inline"; everything else is metadata such as
// status or reviewer changes.
type Transaction struct {
	ID          int64  `json:"id"`
	PHID        string `json:"phid"`
	Type        string `json:"type"`
	AuthorPHID  string `json:"authorPHID"`
	DateCreated int64  `json:"dateCreated"` // epoch seconds
	Comments    []TransactionComment `json:"comments"`
	Fields      struct {
		Path string `json:"path"`
		Line int    `json:"line"`
	} `json:"fields"`
}

// TransactionComment is the text body attached to a comment transaction.
type TransactionComment struct {
	ID      int64 `json:"id"`
	Removed bool  `json:"removed"`
	Content struct {
		Raw string `json:"raw"`
	} `json:"content"`
}

// Repository is one entry from diffusion.repository.search.
type Repository struct {
	ID     int64  `json:"id"`
	PHID   string `json:"phid"`
	Fields struct {
		Name      string `json:"name"`
		VCS       string `json:"vcs"`
		Callsign  string `json:"callsign"`
		ShortName string `json:"shortName"`
		Status    string `json:"status"`
	} `json:"fields"`
}

// User is one entry from user.search.
type User struct {
	ID     int64  `json:"id"`
	PHID   string `json:"phid"`
	Fields struct {
		Username string `json:"username"`
		RealName string `json:"realName"`
	} `json:"fields"`
}
