package checkout

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	dbpkg "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db"
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// sqlite reports unique violations with different text than postgres; tests
// run on sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return dbpkg.IsUniqueViolation(err, "") || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
