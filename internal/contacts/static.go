package contacts

import (
	"context"
)

// StaticResolver serves contact details from a seeded in-memory directory.
// Used in development and tests where no external lookup service exists.
type StaticResolver struct {
	entries map[string]*Details
}

// NewStaticResolver builds a resolver over the given seed entries. Keys are
// normalized once so lookups match regardless of caller casing.
func NewStaticResolver(seed []Details) *StaticResolver {
	entries := make(map[string]*Details, len(seed))
	for i := range seed {
		d := seed[i]
		d.Source = "static"
		entries[NormalizeCompanyName(d.CompanyName)] = &d
	}
	return &StaticResolver{entries: entries}
}

func (r *StaticResolver) Resolve(_ context.Context, companyName string) (*Details, error) {
	d, ok := r.entries[NormalizeCompanyName(companyName)]
	if !ok {
		return nil, ErrNoContact
	}
	return d, nil
}
