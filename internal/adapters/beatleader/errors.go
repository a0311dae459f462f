package beatleader

import (
	"errors"

	"github.com/okian/saberlens/internal/adapters/upstream"
)

func isNotFound(err error) bool {
	return errors.Is(err, upstream.ErrNotFound)
}
