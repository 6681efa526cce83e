package storage

import (
	"sort"

	"github.com/D4ZA1/Cryopay/interfaces"
)

func sortIdentities(recs []interfaces.IdentityRecord) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].IdentityID < recs[j].IdentityID })
}
