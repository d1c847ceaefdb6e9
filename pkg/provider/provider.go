package provider

import (
	"context"
	"fmt"
	"strings"
)

// Reference locates one field of a versioned key-value secret.
type Reference struct {
	// Mount is the KV v2 secrets engine mount, e.g. "kv"
	Mount string

	// Path is the secret path relative to the mount, e.g. "store"
	Path string

	// Field is the key inside the secret's data map, e.g. "password"
	Field string
}

// DefaultReference is the single location vaultboot reads.
var DefaultReference = Reference{
	Mount: "kv",
	Path:  "store",
	Field: "password",
}

// String renders the reference as mount/path#field.
func (r Reference) String() string {
	return fmt.Sprintf("%s/%s#%s", strings.Trim(r.Mount, "/"), strings.Trim(r.Path, "/"), r.Field)
}

// Validate reports the first empty component of the reference.
func (r Reference) Validate() error {
	switch {
	case strings.Trim(r.Mount, "/") == "":
		return fmt.Errorf("reference mount is empty")
	case strings.Trim(r.Path, "/") == "":
		return fmt.Errorf("reference path is empty")
	case r.Field == "":
		return fmt.Errorf("reference field is empty")
	}
	return nil
}

// Fetcher retrieves the value of a single referenced field.
//
// Implementations perform exactly one attempt per call. Failures are
// classified with the sentinels in internal/errors (not found, field
// missing, authentication failed); anything else is returned as is.
type Fetcher interface {
	Fetch(ctx context.Context, ref Reference) (string, error)
}
