package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category is the rate-bearing grouping a timer snapshots its hourly rate from.
type Category struct {
	ID              string
	UserID          string
	Name            string
	HourlyRateCents int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("category name is required")
	}
	if c.HourlyRateCents < 0 {
		return fmt.Errorf("hourly rate must not be negative (got %s)", FormatCents(c.HourlyRateCents))
	}
	return nil
}
