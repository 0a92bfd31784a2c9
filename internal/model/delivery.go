package model

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	usernameRegexp = regexp.MustCompile(`^X\d+SC\d+-Z\d+-[A-Z]\d+$`)
	dateRegexp     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Delivery holds the download information of a vendor sequencing-data delivery,
// normally extracted from the delivery email.
type Delivery struct {
	DataPath    string `json:"data_path"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	ReleaseDate string `json:"release_date"`
	ExpireDate  string `json:"expire_date"`
	TotalSize   string `json:"total_size"`
	SampleCount string `json:"sample_count"`
	SampleNames string `json:"sample_names"`
	BatchInfo   string `json:"batch_info"`
	Notes       string `json:"notes"`
}

// Validate validates the delivery information.
func (d *Delivery) Validate() error {
	if strings.TrimSpace(d.DataPath) == "" {
		return fmt.Errorf("data path is required: %w", ErrNotValid)
	}
	if !strings.HasPrefix(d.DataPath, "oss://") {
		return fmt.Errorf("data path must be an oss:// path: %w", ErrNotValid)
	}

	if d.Username == "" {
		return fmt.Errorf("username is required: %w", ErrNotValid)
	}
	if !usernameRegexp.MatchString(d.Username) {
		return fmt.Errorf("username %q has an invalid format: %w", d.Username, ErrNotValid)
	}

	if len(d.Password) < 6 {
		return fmt.Errorf("password must be at least 6 characters: %w", ErrNotValid)
	}

	// Dates are optional, validated only when present.
	if d.ReleaseDate != "" && !dateRegexp.MatchString(d.ReleaseDate) {
		return fmt.Errorf("release date %q is not YYYY-MM-DD: %w", d.ReleaseDate, ErrNotValid)
	}
	if d.ExpireDate != "" && !dateRegexp.MatchString(d.ExpireDate) {
		return fmt.Errorf("expire date %q is not YYYY-MM-DD: %w", d.ExpireDate, ErrNotValid)
	}

	return nil
}
