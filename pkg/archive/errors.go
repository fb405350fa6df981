// Package archive implements the merge engine, checkout, rollback, apply,
// and facade operations of History Store (spec §4.4-§4.7, §7).
package archive

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/historystore/pkg/document"
	"github.com/kasuganosora/historystore/pkg/store"
)

// Error kinds from spec §7. Each is a sentinel so callers can match with
// errors.Is; wrapped with context via fmt.Errorf("...: %w", ...).
var (
	ErrSchema        = document.ErrSchema
	ErrDuplicateKey  = errors.New("duplicate key error")
	ErrUnsortedInput = document.ErrUnsortedInput
	ErrVersion       = errors.New("version error")
	ErrIntegrity     = errors.New("integrity error")
	ErrStore         = store.ErrStore
	ErrSerialization = store.ErrSerialization
)

func errSchemaf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrSchema)
}

func errDuplicateKeyf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrDuplicateKey)
}

func errVersionf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrVersion)
}

func errIntegrityf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrIntegrity)
}
