package repositories

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrPrimaryDiagnosisExists is returned when a medical record already
	// carries an ACTIVE PRIMARY diagnostic.
	ErrPrimaryDiagnosisExists = errors.New("medical record already has an active primary diagnostic")
	// ErrDuplicateCode is returned when a unique business key is reused.
	ErrDuplicateCode = errors.New("duplicate key")
)

// Page selects one window of a listing. Page is 1-based.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page into range, applying def when Limit is unset.
func (p Page) Normalize(def, max int) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = def
	}
	if max > 0 && p.Limit > max {
		p.Limit = max
	}
	return p
}

// Offset is the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// translate maps gorm errors onto the package sentinels.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicateCode)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// likeEscape must follow every LIKE whose operand comes from containsPattern.
// '!' is used because a backslash literal is read differently by MySQL and
// Postgres.
const likeEscape = " ESCAPE '!'"

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern builds a case-insensitive LIKE operand matching s literally.
func containsPattern(s string) string {
	return "%" + likeReplacer.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}
