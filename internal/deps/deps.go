// Package deps computes dependence relations between a PrimFunc's
// accesses (spec.md §4.4): RAW, WAR, and WAW candidate pairs, each
// expressed as a polyhedral map from the earlier access's iteration
// point to the later one's, built by composing access relations
// against the strict lexicographic "before" relation over the
// schedule's time tuple.
//
// The relation reported is the full candidate set of same-location,
// order-respecting access pairs, not narrowed to each read's nearest
// preceding writer. That is sufficient for the legality checks
// internal/scheduler and internal/tiler run (a schedule or tile is
// illegal if it violates ANY dependence, and the narrower nearest-writer
// relation is always a subset of this one) and is a documented
// simplification relative to isl's schedule-aware dependence analysis.
package deps

import (
	"loopoly/internal/access"
	"loopoly/internal/islx"
)

// Kind distinguishes the three hazard shapes spec.md §4.4 names.
type Kind uint8

const (
	RAW Kind = iota
	WAR
	WAW
)

func (k Kind) String() string {
	switch k {
	case RAW:
		return "RAW"
	case WAR:
		return "WAR"
	case WAW:
		return "WAW"
	default:
		return "unknown"
	}
}

// Dependence is one candidate pair: a relation from the earlier
// access's statement instance to the later one's.
type Dependence struct {
	Kind     Kind
	Tensor   string
	Earlier  access.Ref
	Later    access.Ref
	Relation *islx.UnionMap
}

// scheduleOf looks up a compute's schedule map within tree by name.
func scheduleOf(tree *islx.ScheduleTree, name string) *islx.BasicMap {
	for _, s := range tree.Stmts {
		if s.Name == name {
			return s.Schedule
		}
	}
	return nil
}

func renamePrefixed(names []string, prefix string) map[string]string {
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[n] = prefix + n
	}
	return m
}

// before builds {earlier -> later : earlier's domain point runs
// strictly before later's, per sched}. Both accesses' domain
// dimensions are first renamed src$/dst$ so composing the two
// schedules' time tuples through LexLess never collides, even when
// earlier and later are the same statement.
func before(tree *islx.ScheduleTree, earlierDomainDims, laterDomainDims []string, earlierSched, laterSched *islx.BasicMap) (*islx.UnionMap, error) {
	srcRename := renamePrefixed(earlierDomainDims, "src$")
	dstRename := renamePrefixed(laterDomainDims, "dst$")
	wTimeNames := make([]string, len(tree.TimeDims))
	rTimeNames := make([]string, len(tree.TimeDims))
	timeRenameW := map[string]string{}
	timeRenameR := map[string]string{}
	for i, t := range tree.TimeDims {
		wTimeNames[i] = "wtime#" + itoaDeps(i)
		rTimeNames[i] = "rtime#" + itoaDeps(i)
		timeRenameW[t] = wTimeNames[i]
		timeRenameR[t] = rTimeNames[i]
	}

	schedW := earlierSched.Rename(mergeRename(srcRename, timeRenameW))
	schedR := laterSched.Rename(mergeRename(dstRename, timeRenameR))
	lex := islx.LexLess(tree.Params, wTimeNames, rTimeNames)

	out := &islx.UnionMap{}
	for _, piece := range lex.Pieces {
		left, err := islx.Compose(schedW, piece)
		if err != nil {
			return nil, err
		}
		full, err := islx.Compose(left, schedR.Reverse())
		if err != nil {
			return nil, err
		}
		out.Pieces = append(out.Pieces, full)
	}
	return out, nil
}

func mergeRename(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func itoaDeps(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}

// candidate builds {earlier.domain -> later.domain} restricted to
// accesses touching the same tensor location, via earlier.Map
// composed with the reverse of later.Map over their shared
// "tensorName#k" output dims.
func candidate(earlier, later access.Ref) (*islx.BasicMap, error) {
	srcRename := renamePrefixed(earlier.Map.InDims, "src$")
	dstRename := renamePrefixed(later.Map.InDims, "dst$")
	wMap := earlier.Map.Rename(srcRename)
	rMap := later.Map.Rename(dstRename)
	return islx.Compose(wMap, rMap.Reverse())
}

// Analyze computes every RAW, WAR, and WAW candidate dependence among
// the accesses refs, whose schedule context is tree.
func Analyze(tree *islx.ScheduleTree, refs []access.Ref) ([]Dependence, error) {
	var out []Dependence
	for i, a := range refs {
		for j, b := range refs {
			if i == j || a.Tensor != b.Tensor {
				continue
			}
			var kind Kind
			switch {
			case a.Write && !b.Write:
				kind = RAW
			case !a.Write && b.Write:
				kind = WAR
			case a.Write && b.Write:
				kind = WAW
			default:
				continue // read-after-read is not a hazard
			}
			aSched := scheduleOf(tree, a.Compute)
			bSched := scheduleOf(tree, b.Compute)
			if aSched == nil || bSched == nil {
				continue
			}
			cand, err := candidate(a, b)
			if err != nil {
				return nil, err
			}
			ord, err := before(tree, a.Map.InDims, b.Map.InDims, aSched, bSched)
			if err != nil {
				return nil, err
			}
			rel := &islx.UnionMap{}
			for _, piece := range ord.Pieces {
				merged, err := islx.IntersectMaps(cand, piece)
				if err != nil {
					return nil, err
				}
				rel.Pieces = append(rel.Pieces, merged)
			}
			if rel.IsEmpty() {
				continue
			}
			out = append(out, Dependence{Kind: kind, Tensor: a.Tensor, Earlier: a, Later: b, Relation: rel})
		}
	}
	return out, nil
}
