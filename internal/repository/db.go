package repository

import (
	"errors"

	"github.com/lib/pq"
)

type scanner interface {
	Scan(dest ...any) error
}

func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
