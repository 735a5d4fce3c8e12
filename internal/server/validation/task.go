package validation

import (
	"time"

	"github.com/dmitrijs2005/taskflow/internal/server/models"
)

type CreateTaskCommand struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Status          models.TaskStatus `json:"status"`
	StartTime       *time.Time        `json:"startTime"`
	EndTime         *time.Time        `json:"endTime"`
	CalendarEventID *string           `json:"calendarEventId"`
}

func (c *CreateTaskCommand) Validate() error {
	c.Title = trim(c.Title)
	if c.Status == "" {
		c.Status = models.TaskPending
	}

	errs := Errors{}
	checkTitle(errs, c.Title)
	if tooLong(c.Description, maxDescLen) {
		errs.add("description", "is too long")
	}
	if !c.Status.Valid() {
		errs.add("status", "must be pending, in_progress or completed")
	}
	checkTimeOrder(errs, c.StartTime, c.EndTime)
	return errs.result()
}

// UpdateTaskCommand is a partial update: nil fields are left unchanged.
type UpdateTaskCommand struct {
	Title           *string            `json:"title"`
	Description     *string            `json:"description"`
	Status          *models.TaskStatus `json:"status"`
	StartTime       *time.Time         `json:"startTime"`
	EndTime         *time.Time         `json:"endTime"`
	CalendarEventID *string            `json:"calendarEventId"`
}

func (c *UpdateTaskCommand) Validate() error {
	errs := Errors{}
	if c.Title != nil {
		t := trim(*c.Title)
		c.Title = &t
		checkTitle(errs, t)
	}
	if c.Description != nil && tooLong(*c.Description, maxDescLen) {
		errs.add("description", "is too long")
	}
	if c.Status != nil && !c.Status.Valid() {
		errs.add("status", "must be pending, in_progress or completed")
	}
	checkTimeOrder(errs, c.StartTime, c.EndTime)
	return errs.result()
}

// Apply merges the command into t and re-checks the time order of the
// merged result.
func (c *UpdateTaskCommand) Apply(t *models.Task) error {
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.Description != nil {
		t.Description = *c.Description
	}
	if c.Status != nil {
		t.Status = *c.Status
	}
	if c.StartTime != nil {
		t.StartTime = c.StartTime
	}
	if c.EndTime != nil {
		t.EndTime = c.EndTime
	}
	if c.CalendarEventID != nil {
		t.CalendarEventID = c.CalendarEventID
	}

	errs := Errors{}
	checkTimeOrder(errs, t.StartTime, t.EndTime)
	return errs.result()
}

type ListTasksQuery struct {
	Status models.TaskStatus
	Limit  int
	Offset int
}

const maxPageSize = 100

func (q *ListTasksQuery) Validate() error {
	errs := Errors{}
	if q.Status != "" && !q.Status.Valid() {
		errs.add("status", "must be pending, in_progress or completed")
	}
	if q.Limit < 0 || q.Limit > maxPageSize {
		errs.add("limit", "must be between 0 and 100")
	}
	if q.Offset < 0 {
		errs.add("offset", "must not be negative")
	}
	if q.Limit == 0 {
		q.Limit = maxPageSize
	}
	return errs.result()
}

type CreateAttachmentCommand struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

func (c *CreateAttachmentCommand) Validate() error {
	c.FileName = trim(c.FileName)
	c.ContentType = trim(c.ContentType)
	if c.ContentType == "" {
		c.ContentType = "application/octet-stream"
	}

	errs := Errors{}
	switch {
	case c.FileName == "":
		errs.add("fileName", "is required")
	case tooLong(c.FileName, maxFileNameLen):
		errs.add("fileName", "is too long")
	}
	return errs.result()
}

func checkTitle(errs Errors, title string) {
	switch {
	case title == "":
		errs.add("title", "is required")
	case tooLong(title, maxTitleLen):
		errs.add("title", "is too long")
	}
}

func checkTimeOrder(errs Errors, start, end *time.Time) {
	if start != nil && end != nil && !start.Before(*end) {
		errs.add("endTime", "must be after startTime")
	}
}
