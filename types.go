package balsa

import "golang.org/x/exp/constraints"

// Label is the class of a data point: a dense index in [0, classCount).
type Label uint8

// NodeID identifies a node within one tree. The root is node 0. Child
// links holding 0 mean "no child"; real children never live at id 0.
type NodeID uint32

// FeatureID is a dense column index in [0, featureCount).
type FeatureID uint32

// Feature is the scalar type of a feature value. A forest is monomorphic
// in its feature type: every tree of one model shares the same
// instantiation.
type Feature interface {
	constraints.Float
}
