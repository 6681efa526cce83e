package ledger

import (
	"fmt"
	"strings"

	"github.com/D4ZA1/Cryopay/interfaces"
)

// IssueKind names a class of chain defect.
type IssueKind string

const (
	// IssueHashMismatch: the stored hash is not the SHA-256 of the entry's ciphertext.
	IssueHashMismatch IssueKind = "hash_mismatch"
	// IssueSaltMismatch: the entry's salt is not its previous_hash.
	IssueSaltMismatch IssueKind = "salt_mismatch"
	// IssueBrokenLink: the parent exists but its ciphertext no longer hashes to the child's previous_hash.
	IssueBrokenLink IssueKind = "broken_link"
	// IssueMissingParent: no entry carries the child's previous_hash.
	IssueMissingParent IssueKind = "missing_parent"
	// IssueFork: more than one entry names the same previous_hash.
	IssueFork IssueKind = "fork"
	// IssueMultipleRoots: more than one entry has a null previous_hash.
	IssueMultipleRoots IssueKind = "multiple_roots"
	// IssueDuplicateHash: two stored entries carry the same hash.
	IssueDuplicateHash IssueKind = "duplicate_hash"
	// IssueUnreachable: the entry cannot be reached from any root or orphan, i.e. it sits on a link cycle.
	IssueUnreachable IssueKind = "unreachable"
)

// Issue is one defect found by VerifyChain.
type Issue struct {
	Kind   IssueKind       `json:"kind"`
	Hash   interfaces.Hash `json:"hash"`
	Detail string          `json:"detail,omitempty"`
}

func (i Issue) String() string {
	if i.Detail == "" {
		return fmt.Sprintf("%s at %s", i.Kind, i.Hash)
	}
	return fmt.Sprintf("%s at %s: %s", i.Kind, i.Hash, i.Detail)
}

// Report is the outcome of a chain walk.
type Report struct {
	Entries int               `json:"entries"`
	Order   []interfaces.Hash `json:"order"`
	Tip     *interfaces.Hash  `json:"tip"`
	Issues  []Issue           `json:"issues"`
}

// OK reports whether no issue was found.
func (r Report) OK() bool {
	return len(r.Issues) == 0
}

// Has reports whether an issue of kind was found at hash.
func (r Report) Has(kind IssueKind, hash interfaces.Hash) bool {
	for _, issue := range r.Issues {
		if issue.Kind == kind && issue.Hash == hash {
			return true
		}
	}
	return false
}

// Count returns the number of issues of kind.
func (r Report) Count(kind IssueKind) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			n++
		}
	}
	return n
}

// VerifyChain follows previous_hash links between entries, never the order
// they were handed in, and reports every defect it finds.
func VerifyChain(entries []interfaces.LedgerEntry) Report {
	report := Report{Entries: len(entries), Order: []interfaces.Hash{}, Issues: []Issue{}}

	byHash := make(map[interfaces.Hash]int, len(entries))
	recomputed := make([]*interfaces.Hash, len(entries))
	children := make(map[interfaces.Hash][]int)
	var roots, orphans []int

	for i, e := range entries {
		if _, dup := byHash[e.Hash]; dup {
			report.Issues = append(report.Issues, Issue{Kind: IssueDuplicateHash, Hash: e.Hash})
			continue
		}
		byHash[e.Hash] = i

		h, err := EntryHash(e.EncryptedBlob)
		if err != nil {
			report.Issues = append(report.Issues, Issue{Kind: IssueHashMismatch, Hash: e.Hash, Detail: err.Error()})
		} else {
			recomputed[i] = &h
			if h != e.Hash {
				report.Issues = append(report.Issues, Issue{Kind: IssueHashMismatch, Hash: e.Hash, Detail: "recomputed " + h.String()})
			}
		}

		if e.PreviousHash == nil {
			roots = append(roots, i)
			continue
		}
		if !strings.EqualFold(e.EncryptedBlob.Salt, e.PreviousHash.String()) {
			report.Issues = append(report.Issues, Issue{Kind: IssueSaltMismatch, Hash: e.Hash, Detail: "salt " + e.EncryptedBlob.Salt})
		}
		children[*e.PreviousHash] = append(children[*e.PreviousHash], i)
	}

	for i, e := range entries {
		if e.PreviousHash == nil {
			continue
		}
		if idx, seen := byHash[e.Hash]; !seen || idx != i {
			continue
		}
		parent, ok := byHash[*e.PreviousHash]
		if !ok {
			orphans = append(orphans, i)
			report.Issues = append(report.Issues, Issue{Kind: IssueMissingParent, Hash: e.Hash, Detail: "previous " + e.PreviousHash.String()})
			continue
		}
		if recomputed[parent] == nil || *recomputed[parent] != *e.PreviousHash {
			report.Issues = append(report.Issues, Issue{Kind: IssueBrokenLink, Hash: e.Hash, Detail: "parent " + e.PreviousHash.String() + " no longer hashes to this link"})
		}
	}

	for i, e := range entries {
		if byHash[e.Hash] != i {
			continue
		}
		if kids := children[e.Hash]; len(kids) > 1 {
			report.Issues = append(report.Issues, Issue{Kind: IssueFork, Hash: e.Hash, Detail: fmt.Sprintf("%d successors", len(kids))})
		}
	}

	if len(roots) > 1 {
		for _, r := range roots[1:] {
			report.Issues = append(report.Issues, Issue{Kind: IssueMultipleRoots, Hash: entries[r].Hash})
		}
	}

	visited := make(map[interfaces.Hash]bool, len(entries))
	var tipDepth = -1
	var walk func(i, depth int)
	walk = func(i, depth int) {
		h := entries[i].Hash
		if visited[h] {
			return
		}
		visited[h] = true
		report.Order = append(report.Order, h)
		if depth > tipDepth {
			tipDepth = depth
			report.Tip = interfaces.HashPtr(h)
		}
		for _, child := range children[h] {
			walk(child, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	for _, o := range orphans {
		walk(o, 0)
	}

	for i, e := range entries {
		if idx, ok := byHash[e.Hash]; ok && idx == i && !visited[e.Hash] {
			report.Issues = append(report.Issues, Issue{Kind: IssueUnreachable, Hash: e.Hash})
		}
	}

	return report
}
