package domain

import "time"

// Bonus is a promotional offer shown on the public site and managed in admin.
type Bonus struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	TurnoverRequirement string    `json:"turnoverRequirement"`
	ImageURL            string    `json:"imageUrl"`
	CTALink             string    `json:"ctaLink"`
	IsActive            bool      `json:"isActive"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// BonusInput carries the admin-editable fields of a Bonus. IsActive is a
// pointer so an omitted flag can default to true.
type BonusInput struct {
	Title               string `json:"title" validate:"min=5"`
	Description         string `json:"description" validate:"min=10"`
	TurnoverRequirement string `json:"turnoverRequirement" validate:"min=1"`
	ImageURL            string `json:"imageUrl" validate:"imageurl"`
	CTALink             string `json:"ctaLink" validate:"url"`
	IsActive            *bool  `json:"isActive"`
}

// Active resolves the IsActive default.
func (in BonusInput) Active() bool {
	if in.IsActive == nil {
		return true
	}
	return *in.IsActive
}

// BonusStats summarises the bonus collection for the admin dashboard.
type BonusStats struct {
	TotalBonuses  int64  `json:"totalBonuses"`
	ActiveBonuses int64  `json:"activeBonuses"`
	StoreMode     string `json:"storeMode"`
}
