package jmt

import "sort"

// outcomeKind tags the result of applying a batch at one path, letting the
// engine distinguish "nothing here changed" from "this subtree was
// rewritten" so it can avoid rewriting untouched children and correctly
// decide what to orphan.
type outcomeKind int

const (
	outcomeUnchanged outcomeKind = iota
	outcomeUpdated
	outcomeDeleted
)

type outcome struct {
	kind outcomeKind
	node *Node // nil for Unchanged(None) and for Deleted
}

func unchangedOutcome(node *Node) outcome { return outcome{kind: outcomeUnchanged, node: node} }
func updatedOutcome(node Node) outcome    { return outcome{kind: outcomeUpdated, node: &node} }
func deletedOutcome() outcome             { return outcome{kind: outcomeDeleted} }

func (o outcome) isEmpty() bool {
	return o.kind == outcomeDeleted || (o.kind == outcomeUnchanged && o.node == nil)
}

func (t *Tree) saveNode(version uint64, path BitArray, node Node) error {
	return wrapStoreErr("write node", t.store.Write(nodeKey(t.nodesNamespace, version, path), EncodeNode(node)))
}

func (t *Tree) markOrphaned(orphanedSince, nodeVersion uint64, path BitArray) error {
	key := orphanKey(t.orphansNamespace, orphanedSince, nodeVersion, path)
	return wrapStoreErr("write orphan entry", t.store.Write(key, []byte{0x01}))
}

func onlyInserts(batch []Entry) []Entry {
	out := make([]Entry, 0, len(batch))
	for _, e := range batch {
		if e.Op.IsInsert() {
			out = append(out, e)
		}
	}
	return out
}

// extractOwnOp removes, if present, the entry whose key_hash equals
// keyHash from a batch sorted ascending by key_hash, returning it
// separately from the rest.
func extractOwnOp(batch []Entry, keyHash Hash) (own *Entry, rest []Entry) {
	idx := sort.Search(len(batch), func(i int) bool { return !hashLess(batch[i].KeyHash, keyHash) })
	if idx < len(batch) && batch[idx].KeyHash == keyHash {
		e := batch[idx]
		rest = make([]Entry, 0, len(batch)-1)
		rest = append(rest, batch[:idx]...)
		rest = append(rest, batch[idx+1:]...)
		return &e, rest
	}
	return nil, batch
}

// applyAt is the recursive core: dispatches on whatever is stored at
// (atVersion, path) in the persisted tree.
func (t *Tree) applyAt(newVersion, atVersion uint64, path BitArray, batch []Entry) (outcome, error) {
	node, found, err := t.loadNode(atVersion, path)
	if err != nil {
		return outcome{}, err
	}
	if !found {
		inserts := onlyInserts(batch)
		if len(inserts) == 0 {
			return unchangedOutcome(nil), nil
		}
		return t.createSubtree(newVersion, path, inserts, nil)
	}
	if node.IsLeaf() {
		return t.applyAtLeaf(newVersion, path, *node.Leaf, batch)
	}
	return t.applyAtInternal(newVersion, path, node.Internal, batch)
}

func (t *Tree) applyAtLeaf(newVersion uint64, path BitArray, leaf Leaf, batch []Entry) (outcome, error) {
	own, rest := extractOwnOp(batch, leaf.KeyHash)
	filtered := onlyInserts(rest)

	if len(filtered) == 0 {
		switch {
		case own == nil:
			return unchangedOutcome(leafNodePtr(leaf)), nil
		case own.Op.IsDelete():
			return deletedOutcome(), nil
		case own.Op.Value == leaf.ValueHash:
			return unchangedOutcome(leafNodePtr(leaf)), nil
		default:
			updated := LeafNode(leaf.KeyHash, own.Op.Value)
			if err := t.saveNode(newVersion, path, updated); err != nil {
				return outcome{}, err
			}
			return updatedOutcome(updated), nil
		}
	}

	switch {
	case own != nil && own.Op.IsInsert():
		existing := &Leaf{KeyHash: leaf.KeyHash, ValueHash: own.Op.Value}
		return t.createSubtree(newVersion, path, filtered, existing)
	case own != nil && own.Op.IsDelete():
		return t.createSubtree(newVersion, path, filtered, nil)
	default:
		return t.createSubtree(newVersion, path, filtered, &leaf)
	}
}

func leafNodePtr(leaf Leaf) *Node {
	n := LeafNode(leaf.KeyHash, leaf.ValueHash)
	return &n
}

// createSubtree builds (and saves) the node rooted at path from a
// possibly-empty, strictly-ascending set of inserts plus an optional
// pre-existing leaf that must be placed somewhere in the new subtree.
func (t *Tree) createSubtree(newVersion uint64, path BitArray, inserts []Entry, existingLeaf *Leaf) (outcome, error) {
	switch {
	case len(inserts) == 0 && existingLeaf == nil:
		return unchangedOutcome(nil), nil

	case len(inserts) == 0 && existingLeaf != nil:
		node := LeafNode(existingLeaf.KeyHash, existingLeaf.ValueHash)
		if err := t.saveNode(newVersion, path, node); err != nil {
			return outcome{}, err
		}
		return updatedOutcome(node), nil

	case len(inserts) == 1 && existingLeaf == nil:
		e := inserts[0]
		node := LeafNode(e.KeyHash, e.Op.Value)
		if err := t.saveNode(newVersion, path, node); err != nil {
			return outcome{}, err
		}
		return updatedOutcome(node), nil
	}

	bitIdx := path.Len()
	splitIdx := sort.Search(len(inserts), func(i int) bool { return BitAtHash(inserts[i].KeyHash, bitIdx) == 1 })
	leftInserts, rightInserts := inserts[:splitIdx], inserts[splitIdx:]

	var leftLeaf, rightLeaf *Leaf
	if existingLeaf != nil {
		if BitAtHash(existingLeaf.KeyHash, bitIdx) == 0 {
			leftLeaf = existingLeaf
		} else {
			rightLeaf = existingLeaf
		}
	}

	leftPath := path.ExtendOneBit(true)
	rightPath := path.ExtendOneBit(false)

	leftOutcome, err := t.createSubtree(newVersion, leftPath, leftInserts, leftLeaf)
	if err != nil {
		return outcome{}, err
	}
	rightOutcome, err := t.createSubtree(newVersion, rightPath, rightInserts, rightLeaf)
	if err != nil {
		return outcome{}, err
	}

	invariant(leftOutcome.kind != outcomeDeleted, "create_subtree produced Deleted")
	invariant(rightOutcome.kind != outcomeDeleted, "create_subtree produced Deleted")

	var left, right *Child
	if leftOutcome.kind == outcomeUpdated {
		h := leftOutcome.node.Hash()
		left = &Child{Version: newVersion, Hash: h}
	}
	if rightOutcome.kind == outcomeUpdated {
		h := rightOutcome.node.Hash()
		right = &Child{Version: newVersion, Hash: h}
	}

	internal := InternalNode(left, right)
	if err := t.saveNode(newVersion, path, internal); err != nil {
		return outcome{}, err
	}
	return updatedOutcome(internal), nil
}

// applyAtChild resolves the outcome for one child of an internal node,
// given the sub-batch routed to it and its existing descriptor (nil if
// the child is absent).
func (t *Tree) applyAtChild(newVersion uint64, childPath BitArray, childRef *Child, subBatch []Entry) (outcome, error) {
	if len(subBatch) == 0 {
		if childRef == nil {
			return unchangedOutcome(nil), nil
		}
		node, found, err := t.loadNode(childRef.Version, childPath)
		if err != nil {
			return outcome{}, err
		}
		if !found {
			return outcome{}, &NotFoundError{Version: childRef.Version, Path: childPath}
		}
		return unchangedOutcome(&node), nil
	}

	if childRef == nil {
		inserts := onlyInserts(subBatch)
		if len(inserts) == 0 {
			return unchangedOutcome(nil), nil
		}
		return t.createSubtree(newVersion, childPath, inserts, nil)
	}

	sub, err := t.applyAt(newVersion, childRef.Version, childPath, subBatch)
	if err != nil {
		return outcome{}, err
	}
	switch sub.kind {
	case outcomeUpdated:
		if err := t.saveNode(newVersion, childPath, *sub.node); err != nil {
			return outcome{}, err
		}
		if err := t.markOrphaned(newVersion, childRef.Version, childPath); err != nil {
			return outcome{}, err
		}
	case outcomeDeleted:
		if err := t.markOrphaned(newVersion, childRef.Version, childPath); err != nil {
			return outcome{}, err
		}
	}
	return sub, nil
}

// applyAtInternal partitions batch by the bit at path.Len() (a single
// split, since batch is sorted ascending by key_hash), recurses into each
// child, and combines the two outcomes per the collapse rule.
func (t *Tree) applyAtInternal(newVersion uint64, path BitArray, internal *Internal, batch []Entry) (outcome, error) {
	bitIdx := path.Len()
	splitIdx := sort.Search(len(batch), func(i int) bool { return BitAtHash(batch[i].KeyHash, bitIdx) == 1 })
	leftBatch, rightBatch := batch[:splitIdx], batch[splitIdx:]

	leftPath := path.ExtendOneBit(true)
	rightPath := path.ExtendOneBit(false)

	leftOutcome, err := t.applyAtChild(newVersion, leftPath, internal.Left, leftBatch)
	if err != nil {
		return outcome{}, err
	}
	rightOutcome, err := t.applyAtChild(newVersion, rightPath, internal.Right, rightBatch)
	if err != nil {
		return outcome{}, err
	}

	return t.combineInternal(newVersion, path, internal, leftPath, rightPath, leftOutcome, rightOutcome)
}

func (t *Tree) combineInternal(newVersion uint64, path BitArray, internal *Internal, leftPath, rightPath BitArray, left, right outcome) (outcome, error) {
	if left.isEmpty() && right.isEmpty() {
		return deletedOutcome(), nil
	}

	if left.kind == outcomeUnchanged && right.kind == outcomeUnchanged {
		node := InternalNode(internal.Left, internal.Right)
		return unchangedOutcome(&node), nil
	}

	if leaf, survivorPath, survivorRef, ok := collapseCandidate(internal, leftPath, rightPath, left, right); ok {
		if left.isEmpty() == right.isEmpty() {
			invariant(false, "collapse candidate requires exactly one empty side")
		}
		leafNode := *leaf
		if survivorRef != nil {
			if err := t.markOrphaned(newVersion, survivorRef.Version, survivorPath); err != nil {
				return outcome{}, err
			}
		} else {
			// the surviving leaf was just written at (new_version, survivorPath)
			// by applyAtChild; that placement is now superseded by the collapse.
			if err := t.markOrphaned(newVersion, newVersion, survivorPath); err != nil {
				return outcome{}, err
			}
		}
		if err := t.saveNode(newVersion, path, leafNode); err != nil {
			return outcome{}, err
		}
		return updatedOutcome(leafNode), nil
	}

	leftChild := deriveChild(newVersion, internal.Left, left)
	rightChild := deriveChild(newVersion, internal.Right, right)
	newInternal := InternalNode(leftChild, rightChild)
	if err := t.saveNode(newVersion, path, newInternal); err != nil {
		return outcome{}, err
	}
	return updatedOutcome(newInternal), nil
}

// collapseCandidate reports whether exactly one side is a leaf-bearing
// outcome and the other is empty/deleted, returning the leaf node, its
// path, and its pre-apply descriptor (nil if it was freshly written this
// apply, i.e. the side's outcome kind is Updated).
func collapseCandidate(internal *Internal, leftPath, rightPath BitArray, left, right outcome) (leaf *Node, path BitArray, ref *Child, ok bool) {
	leftIsLeaf := !left.isEmpty() && left.node != nil && left.node.IsLeaf()
	rightIsLeaf := !right.isEmpty() && right.node != nil && right.node.IsLeaf()

	switch {
	case leftIsLeaf && right.isEmpty():
		if left.kind == outcomeUnchanged {
			return left.node, leftPath, internal.Left, true
		}
		return left.node, leftPath, nil, true
	case rightIsLeaf && left.isEmpty():
		if right.kind == outcomeUnchanged {
			return right.node, rightPath, internal.Right, true
		}
		return right.node, rightPath, nil, true
	default:
		return nil, BitArray{}, nil, false
	}
}

func deriveChild(newVersion uint64, existing *Child, o outcome) *Child {
	switch o.kind {
	case outcomeUpdated:
		return &Child{Version: newVersion, Hash: o.node.Hash()}
	case outcomeUnchanged:
		if o.node == nil {
			return nil
		}
		return existing
	default: // Deleted
		return nil
	}
}
