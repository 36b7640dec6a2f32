package persistence

import "time"

// Event is the catalog record for an attended event.
type Event struct {
	ID                       string    `yaml:"id"`
	Slug                     string    `yaml:"slug"`
	Title                    string    `yaml:"title"`
	MinimumAttendanceMinutes int       `yaml:"minimumAttendanceMinutes"`
	FeedbackFormID           string    `yaml:"feedbackFormId"`
	StartsAt                 time.Time `yaml:"startsAt"`
	EndsAt                   time.Time `yaml:"endsAt"`
}

// User is a directory entry for an attendee, including the RFID badge it carries.
type User struct {
	ID        string `yaml:"id"`
	Username  string `yaml:"username"`
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
	Email     string `yaml:"email"`
	ImageURL  string `yaml:"imageUrl"`
	RFIDID    string `yaml:"rfidId"`
}

// AttendanceSession is one journaled presence interval. EndedAt is nil while
// the session is open.
type AttendanceSession struct {
	ID        string
	EventID   string
	UserID    string
	StartedAt time.Time
	EndedAt   *time.Time
}
