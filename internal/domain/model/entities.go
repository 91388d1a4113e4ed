package model

// Entities is everything one submission record contributes to the store.
type Entities struct {
	Contest     Contest
	Task        Task
	ContestTask ContestTask
	User        User
	Submission  Submission
}

// RowCount tallies inserted and overwritten rows for one table.
type RowCount struct {
	New     int `json:"new"`
	Updated int `json:"updated"`
}

func (c *RowCount) Add(inserted bool) {
	if inserted {
		c.New++
	} else {
		c.Updated++
	}
}

// CommitResult is returned by a page commit.
type CommitResult struct {
	Contests     RowCount `json:"contests"`
	Tasks        RowCount `json:"tasks"`
	ContestTasks RowCount `json:"contests_tasks"`
	Users        RowCount `json:"users"`
	Submissions  RowCount `json:"submissions"`
	Renames      int      `json:"renames"`
}

func (r CommitResult) New() int {
	return r.Contests.New + r.Tasks.New + r.ContestTasks.New + r.Users.New + r.Submissions.New
}

func (r CommitResult) Updated() int {
	return r.Contests.Updated + r.Tasks.Updated + r.ContestTasks.Updated + r.Users.Updated + r.Submissions.Updated
}
