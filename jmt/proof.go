package jmt

// MembershipProof demonstrates that keyHash maps to ValueHash at the
// queried version.
type MembershipProof struct {
	ValueHash     Hash
	SiblingHashes []*Hash
}

// InternalWitness describes the first internal node, on the path to
// keyHash, where the expected child is absent.
type InternalWitness struct {
	LeftHash  *Hash
	RightHash *Hash
}

// LeafWitness describes the leaf actually reached while walking keyHash's
// bit path, whose key_hash diverges from the queried one.
type LeafWitness struct {
	KeyHash   Hash
	ValueHash Hash
}

// NonMembershipProof demonstrates keyHash is absent at the queried
// version, via whichever witness the walk stopped at.
type NonMembershipProof struct {
	Internal      *InternalWitness
	Leaf          *LeafWitness
	SiblingHashes []*Hash
}

// Proof is exactly one of Membership or NonMembership.
type Proof struct {
	Membership    *MembershipProof
	NonMembership *NonMembershipProof
}

// Prove walks the tree at version from the root toward keyHash, recording
// MSB-first one sibling hash per internal level (nil for an absent
// sibling) in root-to-leaf order — the order Verify expects to consume
// from the end first, since it folds leaf-upward.
func (t *Tree) Prove(keyHash Hash, version uint64) (Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	path := Empty()
	atVersion := version
	var siblings []*Hash

	for {
		node, found, err := t.loadNode(atVersion, path)
		if err != nil {
			return Proof{}, err
		}
		if !found {
			return Proof{}, &NotFoundError{Version: atVersion, Path: path}
		}

		if node.IsLeaf() {
			leaf := *node.Leaf
			if leaf.KeyHash == keyHash {
				return Proof{Membership: &MembershipProof{
					ValueHash:     leaf.ValueHash,
					SiblingHashes: siblings,
				}}, nil
			}
			return Proof{NonMembership: &NonMembershipProof{
				Leaf:          &LeafWitness{KeyHash: leaf.KeyHash, ValueHash: leaf.ValueHash},
				SiblingHashes: siblings,
			}}, nil
		}

		internal := node.Internal
		bit := BitAtHash(keyHash, path.Len())
		var childRef, siblingRef *Child
		if bit == 0 {
			childRef, siblingRef = internal.Left, internal.Right
		} else {
			childRef, siblingRef = internal.Right, internal.Left
		}

		if childRef == nil {
			return Proof{NonMembership: &NonMembershipProof{
				Internal:      internalWitness(internal),
				SiblingHashes: siblings,
			}}, nil
		}

		var siblingHash *Hash
		if siblingRef != nil {
			h := siblingRef.Hash
			siblingHash = &h
		}
		siblings = append(siblings, siblingHash)
		path = path.ExtendOneBit(bit == 0)
		atVersion = childRef.Version
	}
}

func internalWitness(internal *Internal) *InternalWitness {
	w := &InternalWitness{}
	if internal.Left != nil {
		h := internal.Left.Hash
		w.LeftHash = &h
	}
	if internal.Right != nil {
		h := internal.Right.Hash
		w.RightHash = &h
	}
	return w
}

// Verify folds proof bottom-up against keyHash and reports whether the
// result equals root.
func Verify(root Hash, keyHash Hash, proof Proof) bool {
	var cur Hash
	var siblings []*Hash

	switch {
	case proof.Membership != nil:
		cur = LeafHash(keyHash, proof.Membership.ValueHash)
		siblings = proof.Membership.SiblingHashes

	case proof.NonMembership != nil && proof.NonMembership.Leaf != nil:
		w := proof.NonMembership.Leaf
		if w.KeyHash == keyHash {
			return false
		}
		cur = LeafHash(w.KeyHash, w.ValueHash)
		siblings = proof.NonMembership.SiblingHashes

	case proof.NonMembership != nil && proof.NonMembership.Internal != nil:
		w := proof.NonMembership.Internal
		bit := BitAtHash(keyHash, len(proof.NonMembership.SiblingHashes))
		// the key's own side must indeed be the absent one for this witness
		// to be a valid non-membership claim against keyHash.
		if bit == 0 && w.LeftHash != nil {
			return false
		}
		if bit == 1 && w.RightHash != nil {
			return false
		}
		cur = InternalHash(w.LeftHash, w.RightHash)
		siblings = proof.NonMembership.SiblingHashes

	default:
		return false
	}

	for i := len(siblings) - 1; i >= 0; i-- {
		bit := BitAtHash(keyHash, i)
		curCopy := cur
		if bit == 0 {
			cur = InternalHash(&curCopy, siblings[i])
		} else {
			cur = InternalHash(siblings[i], &curCopy)
		}
	}
	return cur == root
}

// BatchProofEntry pairs a queried key hash with the proof produced for it.
type BatchProofEntry struct {
	KeyHash Hash
	Proof   Proof
}

// ProveBatch generates one proof per key hash against a single version,
// the direct generalization of a batched point-query API over the tree.
func (t *Tree) ProveBatch(keyHashes []Hash, version uint64) ([]BatchProofEntry, error) {
	out := make([]BatchProofEntry, len(keyHashes))
	for i, kh := range keyHashes {
		p, err := t.Prove(kh, version)
		if err != nil {
			return nil, err
		}
		out[i] = BatchProofEntry{KeyHash: kh, Proof: p}
	}
	return out, nil
}

// VerifyBatch reports whether every entry verifies against root.
func VerifyBatch(root Hash, entries []BatchProofEntry) bool {
	for _, e := range entries {
		if !Verify(root, e.KeyHash, e.Proof) {
			return false
		}
	}
	return true
}
