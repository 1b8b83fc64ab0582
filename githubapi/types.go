package githubapi

import "time"

// Owner is the repository owner slice returned to clients.
type Owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// Repository is the subset of GitHub's repository record this backend
// exposes to its clients.
type Repository struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	FullName        string     `json:"full_name"`
	Description     string     `json:"description"`
	HTMLURL         string     `json:"html_url"`
	Language        string     `json:"language"`
	StargazersCount int        `json:"stargazers_count"`
	ForksCount      int        `json:"forks_count"`
	Visibility      string     `json:"visibility"`
	DefaultBranch   string     `json:"default_branch"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
	PushedAt        *time.Time `json:"pushed_at"`
	Owner           Owner      `json:"owner"`
}

// PullRequest is the subset of GitHub's pull request record exposed here.
type PullRequest struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	HTMLURL   string     `json:"html_url"`
	User      Owner      `json:"user"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// IssueComment is a comment posted on a pull request's issue thread.
type IssueComment struct {
	ID        int64      `json:"id"`
	Body      string     `json:"body"`
	HTMLURL   string     `json:"html_url"`
	User      Owner      `json:"user"`
	CreatedAt *time.Time `json:"created_at"`
}

// CommitAuthor is the git-level author of a commit.
type CommitAuthor struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Date  *time.Time `json:"date"`
}

// CommitDetail is the nested git commit record.
type CommitDetail struct {
	Message string       `json:"message"`
	Author  CommitAuthor `json:"author"`
}

// CommitStats is the per-commit change summary.
type CommitStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

// Commit is a single commit as returned by the commits endpoint.
type Commit struct {
	SHA     string       `json:"sha"`
	HTMLURL string       `json:"html_url"`
	Commit  CommitDetail `json:"commit"`
	Author  Owner        `json:"author"`
	Stats   CommitStats  `json:"stats"`
}
