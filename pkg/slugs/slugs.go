// Package slugs builds URL-safe identifiers from display names.
package slugs

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"

	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
)

// MaxAttempts bounds the numeric suffix search.
const MaxAttempts = 50

// ExistsFunc reports whether a candidate slug is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Make lowercases and transliterates name into a slug.
func Make(name string) string {
	return slug.Make(name)
}

// Unique returns Make(name), or Make(name)-N for the first free N >= 2.
func Unique(ctx context.Context, name string, exists ExistsFunc) (string, error) {
	base := Make(name)
	if base == "" {
		return "", pkgerrors.Fields("name cannot produce a slug", pkgerrors.FieldError{Field: "name", Message: "must contain letters or digits"})
	}
	candidate := base
	for i := 2; i <= MaxAttempts+1; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slug")
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "slug "+base+" is exhausted")
}
