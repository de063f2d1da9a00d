package jmt

import "github.com/stateforge/jmt/kv"

// Prune removes every orphan entry whose orphaned_since_version is at
// most upToVersion (or every orphan, if upToVersion is nil), along with
// the node each entry references. Nodes are removed before their orphan
// entries, matching the contract's specified order. Pruning is not
// required to be — and is not — concurrent-safe with readers at pruned
// versions.
func (t *Tree) Prune(upToVersion *uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	minKey := orphanNamespacePrefix(t.orphansNamespace)
	var maxKey []byte
	if upToVersion != nil {
		if bound, ok := orphanUpToPrefixEnd(t.orphansNamespace, *upToVersion); ok {
			maxKey = bound
		}
	}

	it, err := t.store.Scan(minKey, maxKey, kv.Ascending)
	if err != nil {
		return wrapStoreErr("scan orphans", err)
	}

	var orphanKeys, referencedNodeKeys [][]byte
	for {
		rec, ok, err := it.Next()
		if err != nil {
			return wrapStoreErr("scan orphans", err)
		}
		if !ok {
			break
		}
		_, nodeVersion, path, err := decodeOrphanKey(t.orphansNamespace, rec.Key)
		if err != nil {
			return &SerializationError{Cause: err}
		}
		orphanKeys = append(orphanKeys, append([]byte(nil), rec.Key...))
		referencedNodeKeys = append(referencedNodeKeys, nodeKey(t.nodesNamespace, nodeVersion, path))
	}

	for _, k := range referencedNodeKeys {
		if err := t.store.Remove(k); err != nil {
			return wrapStoreErr("remove pruned node", err)
		}
	}
	for _, k := range orphanKeys {
		if err := t.store.Remove(k); err != nil {
			return wrapStoreErr("remove orphan entry", err)
		}
	}
	return nil
}
