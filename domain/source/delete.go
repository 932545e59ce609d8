package source

// HandleSourceDelete applies the deletion policy for one source id. The
// precedence order is significant: a FAILED version takes deletion precedence
// even when other versions are referenced by the generated mindmap.
//
//  1. Any FAILED version: the sole version drops the id entirely, otherwise
//     all FAILED versions are pruned and the highest surviving version is
//     promoted to active.
//  2. Every version out of the graph: drop the id entirely.
//  3. An in-graph version with an active version present: tombstone the
//     active version as REMOVED; mindmap content still references it, so it
//     stays visible and recoverable. Inactive out-of-graph versions of the
//     same id are pruned at the same time, since nothing references or
//     displays them.
//  4. Otherwise: no change.
//
// The second return reports whether the collection changed.
func HandleSourceDelete(sources []Source, id string) ([]Source, bool) {
	versions := versionsOf(sources, id)
	if len(versions) == 0 {
		return sources, false
	}

	if anyStatus(versions, StatusFailed) {
		if len(versions) == 1 {
			return dropID(sources, id), true
		}
		return pruneFailed(sources, id), true
	}

	if allOutOfGraph(versions) {
		return dropID(sources, id), true
	}

	if anyInGraph(versions) && anyActive(versions) {
		return tombstoneActive(sources, id), true
	}

	return sources, false
}

func anyStatus(versions []Source, status Status) bool {
	for _, v := range versions {
		if v.Status == status {
			return true
		}
	}
	return false
}

func anyInGraph(versions []Source) bool {
	for _, v := range versions {
		if v.InGraph {
			return true
		}
	}
	return false
}

func allOutOfGraph(versions []Source) bool {
	return !anyInGraph(versions)
}

func anyActive(versions []Source) bool {
	for _, v := range versions {
		if v.Active {
			return true
		}
	}
	return false
}

func dropID(sources []Source, id string) []Source {
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

// pruneFailed removes every FAILED version of id and promotes the highest
// surviving version to active.
func pruneFailed(sources []Source, id string) []Source {
	out := make([]Source, 0, len(sources))
	highest := -1
	for _, s := range sources {
		if s.ID == id && s.Status == StatusFailed {
			continue
		}
		if s.ID == id && s.Version > highest {
			highest = s.Version
		}
		out = append(out, s)
	}
	for i := range out {
		if out[i].ID == id {
			out[i].Active = out[i].Version == highest
		}
	}
	return out
}

// tombstoneActive marks the active version REMOVED and prunes inactive
// out-of-graph versions of the same id.
func tombstoneActive(sources []Source, id string) []Source {
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.ID == id {
			if s.Active {
				s.Status = StatusRemoved
			} else if !s.InGraph {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}
