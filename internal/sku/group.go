package sku

import "github.com/harbor-supply/costsync/internal/model"

// Group partitions parsed records into families by exact prefix equality.
// Both group order and member order follow first encounter in the input,
// so identical input order yields identical output order. Records with
// duplicate SKUs are kept as separate members.
func Group(records []model.VariantRecord) *model.Families {
	families := &model.Families{Groups: make(map[string]*model.FamilyGroup)}
	for _, r := range records {
		g, ok := families.Groups[r.Prefix]
		if !ok {
			g = &model.FamilyGroup{Prefix: r.Prefix}
			families.Groups[r.Prefix] = g
			families.Prefixes = append(families.Prefixes, r.Prefix)
		}
		g.Members = append(g.Members, r)
	}
	return families
}
