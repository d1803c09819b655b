package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type EntityKind string

const (
	EntityKindTip                EntityKind = "tip"
	EntityKindExample            EntityKind = "example"
	EntityKindStudent            EntityKind = "student"
	EntityKindEpisode            EntityKind = "episode"
	EntityKindTipRating          EntityKind = "tip_rating"
	EntityKindExampleRating      EntityKind = "example_rating"
	EntityKindStudentTip         EntityKind = "student_tip"
	EntityKindStudentExample     EntityKind = "student_example"
	EntityKindUserStudentMapping EntityKind = "user_student_mapping"
	EntityKindUser               EntityKind = "user"
)

// FeedKinds are the entity kinds that appear in activity feeds.
var FeedKinds = []EntityKind{EntityKindTip, EntityKindExample, EntityKindStudent, EntityKindEpisode}

func (k EntityKind) Valid() bool {
	switch k {
	case EntityKindTip, EntityKindExample, EntityKindStudent, EntityKindEpisode,
		EntityKindTipRating, EntityKindExampleRating, EntityKindStudentTip,
		EntityKindStudentExample, EntityKindUserStudentMapping, EntityKindUser:
		return true
	}
	return false
}

// EntityRef points at a stored entity. IDs are kept as strings because user
// ids are UUIDs while content ids are integers.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}

func Ref(kind EntityKind, id int64) *EntityRef {
	return &EntityRef{Kind: kind, ID: strconv.FormatInt(id, 10)}
}

func UserRef(u User) *EntityRef {
	return &EntityRef{Kind: EntityKindUser, ID: u.ID}
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// Subject is implemented by every entity a lifecycle event can be about.
type Subject interface {
	EntityKind() EntityKind
}

type Tip struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	CreatedBy        *User     `json:"created_by,omitempty"`
	UpdatedBy        *User     `json:"updated_by,omitempty"`
	MarkedForEditing bool      `json:"marked_for_editing"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Tip) EntityKind() EntityKind { return EntityKindTip }

type Example struct {
	ID        int64     `json:"id"`
	Headline  string    `json:"headline"`
	CreatedBy *User     `json:"created_by,omitempty"`
	UpdatedBy *User     `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Example) EntityKind() EntityKind { return EntityKindExample }

type Student struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedBy *User     `json:"created_by,omitempty"`
	UpdatedBy *User     `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Student) EntityKind() EntityKind { return EntityKindStudent }

func (s Student) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
	if name == "" {
		return fmt.Sprintf("student #%d", s.ID)
	}
	return name
}

type Episode struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Student   *Student  `json:"student,omitempty"`
	CreatedBy *User     `json:"created_by,omitempty"`
	UpdatedBy *User     `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Episode) EntityKind() EntityKind { return EntityKindEpisode }

type TipRating struct {
	ID            int64 `json:"id"`
	Tip           *Tip  `json:"tip,omitempty"`
	RatedBy       *User `json:"rated_by,omitempty"`
	Relevance     int   `json:"relevance"`
	Uniqueness    int   `json:"uniqueness"`
	Effectiveness int   `json:"effectiveness"`
}

func (TipRating) EntityKind() EntityKind { return EntityKindTipRating }

func (r TipRating) Stars() float64 {
	return meanStars(r.Relevance, r.Uniqueness, r.Effectiveness)
}

type ExampleRating struct {
	ID            int64    `json:"id"`
	Example       *Example `json:"example,omitempty"`
	RatedBy       *User    `json:"rated_by,omitempty"`
	Relevance     int      `json:"relevance"`
	Effectiveness int      `json:"effectiveness"`
}

func (ExampleRating) EntityKind() EntityKind { return EntityKindExampleRating }

func (r ExampleRating) Stars() float64 {
	return meanStars(r.Relevance, r.Effectiveness)
}

type StudentTip struct {
	ID         int64    `json:"id"`
	Student    *Student `json:"student,omitempty"`
	Tip        *Tip     `json:"tip,omitempty"`
	AssignedBy *User    `json:"assigned_by,omitempty"`
}

func (StudentTip) EntityKind() EntityKind { return EntityKindStudentTip }

type StudentExample struct {
	ID         int64    `json:"id"`
	Student    *Student `json:"student,omitempty"`
	Example    *Example `json:"example,omitempty"`
	AssignedBy *User    `json:"assigned_by,omitempty"`
}

func (StudentExample) EntityKind() EntityKind { return EntityKindStudentExample }

type UserStudentMapping struct {
	ID         int64    `json:"id"`
	User       *User    `json:"user,omitempty"`
	Student    *Student `json:"student,omitempty"`
	AssignedBy *User    `json:"assigned_by,omitempty"`
}

func (UserStudentMapping) EntityKind() EntityKind { return EntityKindUserStudentMapping }

// PendingReview counts tips a user has read but not yet rated.
type PendingReview struct {
	UserID string `json:"user_id"`
	Count  int    `json:"count"`
}

// meanStars averages the non-zero criteria and rounds to one decimal.
func meanStars(criteria ...int) float64 {
	var sum, n int
	for _, c := range criteria {
		if c > 0 {
			sum += c
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*10) / 10
}
