package book

import "time"

// Book represents a catalog entry owned by the user who created it.
type Book struct {
	ID            string
	OwnerUserID   string
	Title         string
	Author        string
	ImageRef      string // object-store key of the cover image, not a URL
	Year          int
	Genre         string
	Ratings       []Rating
	AverageRating float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Rating is one user's grade for a book. A book holds at most one rating
// per rater.
type Rating struct {
	UserID string
	Grade  float64
}

// MinGrade and MaxGrade bound the accepted rating range, inclusive.
const (
	MinGrade = 0
	MaxGrade = 5
)

// GradeInRange reports whether value is an acceptable grade.
func GradeInRange(value float64) bool {
	return value >= MinGrade && value <= MaxGrade
}

// MergeRating returns a copy of ratings with the rater's entry replaced in
// place, or appended when the rater has not graded the book before. The
// input slice is never mutated.
func MergeRating(ratings []Rating, raterID string, grade float64) []Rating {
	merged := make([]Rating, len(ratings))
	copy(merged, ratings)

	for i := range merged {
		if merged[i].UserID == raterID {
			merged[i].Grade = grade
			return merged
		}
	}
	return append(merged, Rating{UserID: raterID, Grade: grade})
}

// Mean returns the exact arithmetic mean of the grades, or 0 for an empty
// list.
func Mean(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ratings {
		sum += r.Grade
	}
	return sum / float64(len(ratings))
}
