// Package contacts implements non-destructive contact deduplication:
// matching by normalized name, email or phone, and additive merging.
package contacts

import (
	"strings"

	"github.com/pkoster/beleghub/internal/core/domain"
	"github.com/pkoster/beleghub/internal/core/normalize"
)

// FindExisting returns the first contact matching the probe on
// normalized name, case-insensitive email or normalized phone. Empty
// fields never match.
func FindExisting(all []domain.Contact, probe domain.Contact) *domain.Contact {
	probeName := normalize.Name(probe.Name)
	probeEmail := strings.ToLower(strings.TrimSpace(probe.Email))
	probePhone := normalize.Phone(probe.Phone)

	for i := range all {
		c := &all[i]
		if probeName != "" && normalize.Name(c.Name) == probeName {
			return c
		}
		if probeEmail != "" && strings.ToLower(strings.TrimSpace(c.Email)) == probeEmail {
			return c
		}
		if probePhone != "" && normalize.Phone(c.Phone) == probePhone {
			return c
		}
	}
	return nil
}

// Merge folds incoming into existing without overwriting anything that
// is already set. sourceIDs and tags are unioned; lastDocumentDate
// takes the later of the two dates. The existing id always survives.
func Merge(existing, incoming domain.Contact) domain.Contact {
	out := existing

	out.Name = keepOrTake(existing.Name, incoming.Name)
	out.Type = keepOrTake(existing.Type, incoming.Type)
	out.Email = keepOrTake(existing.Email, incoming.Email)
	out.Phone = keepOrTake(existing.Phone, incoming.Phone)
	out.Notes = keepOrTake(existing.Notes, incoming.Notes)
	out.AISummary = keepOrTake(existing.AISummary, incoming.AISummary)

	out.SourceIDs = unionSet(existing.SourceIDs, incoming.SourceIDs)
	out.Tags = unionSet(existing.Tags, incoming.Tags)

	switch {
	case existing.LastDocumentDate == nil:
		out.LastDocumentDate = incoming.LastDocumentDate
	case incoming.LastDocumentDate != nil && incoming.LastDocumentDate.After(*existing.LastDocumentDate):
		out.LastDocumentDate = incoming.LastDocumentDate
	}

	return out
}

func keepOrTake(existing, incoming string) string {
	if strings.TrimSpace(existing) != "" {
		return existing
	}
	return incoming
}

func unionSet(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
