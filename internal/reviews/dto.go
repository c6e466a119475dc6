package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
)

// Actor is the authenticated reviewer or moderator.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// CreateReviewInput is the POST /api/products/{id}/reviews payload.
type CreateReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Title   string `json:"title" validate:"max=120"`
	Comment string `json:"comment" validate:"max=2000"`
}

type ReviewDTO struct {
	ID               uuid.UUID `json:"id"`
	ProductID        uuid.UUID `json:"productId"`
	UserID           uuid.UUID `json:"userId"`
	AuthorName       string    `json:"authorName"`
	Rating           int       `json:"rating"`
	Title            string    `json:"title"`
	Comment          string    `json:"comment"`
	VerifiedPurchase bool      `json:"verifiedPurchase"`
	CreatedAt        time.Time `json:"createdAt"`
}

// RatingDTO is the product aggregate after a review change.
type RatingDTO struct {
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int     `json:"totalReviews"`
}

func newReviewDTO(r models.Review) ReviewDTO {
	dto := ReviewDTO{
		ID:               r.ID,
		ProductID:        r.ProductID,
		UserID:           r.UserID,
		Rating:           r.Rating,
		Title:            r.Title,
		Comment:          r.Comment,
		VerifiedPurchase: r.VerifiedPurchase,
		CreatedAt:        r.CreatedAt,
	}
	if r.User != nil {
		dto.AuthorName = authorName(r.User.FirstName, r.User.LastName)
	}
	return dto
}

// authorName shows the first name and last initial.
func authorName(first, last string) string {
	if last == "" {
		return first
	}
	return first + " " + string([]rune(last)[:1]) + "."
}
