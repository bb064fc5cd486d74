package scene

import (
	"fmt"
	"io"
)

type wireNode struct {
	Name        string      `json:"name,omitempty"`
	Children    []int       `json:"children,omitempty"`
	Translation *[3]float32 `json:"translation,omitempty"`
	Rotation    *[4]float32 `json:"rotation,omitempty"`
	Scale       *[3]float32 `json:"scale,omitempty"`
}

type wireSkin struct {
	Joints              []int         `json:"joints"`
	InverseBindMatrices [][16]float32 `json:"inverseBindMatrices,omitempty"`
	Skeleton            *int          `json:"skeleton,omitempty"`
}

type wireScene struct {
	Roots []int      `json:"roots"`
	Nodes []wireNode `json:"nodes"`
	Skin  *wireSkin  `json:"skin,omitempty"`
}

// Unmarshal decodes and validates a JSON scene with the Default codec.
func Unmarshal(data []byte) (*Scene, error) {
	return UnmarshalWith(Default, data)
}

// UnmarshalWith decodes and validates a JSON scene with c.
func UnmarshalWith(c Codec, data []byte) (*Scene, error) {
	var w wireScene
	if err := c.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}

	s := fromWire(&w)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Decode reads a JSON scene from r with the Default codec.
func Decode(r io.Reader) (*Scene, error) {
	return DecodeWith(Default, r)
}

// DecodeWith reads a JSON scene from r with c.
func DecodeWith(c Codec, r io.Reader) (*Scene, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("scene: read: %w", err)
	}
	return UnmarshalWith(c, data)
}

// Marshal encodes s as JSON. Unflagged components are omitted.
func Marshal(s *Scene) ([]byte, error) {
	return MarshalWith(Default, s)
}

// MarshalWith encodes s with c.
func MarshalWith(c Codec, s *Scene) ([]byte, error) {
	return c.Marshal(toWire(s))
}

func fromWire(w *wireScene) *Scene {
	s := &Scene{
		Roots: w.Roots,
		Nodes: make([]Node, len(w.Nodes)),
	}

	for i, wn := range w.Nodes {
		n := Node{
			Name:     wn.Name,
			Children: wn.Children,
			Rotation: [4]float32{0, 0, 0, 1},
			Scale:    [3]float32{1, 1, 1},
		}
		if wn.Translation != nil {
			n.Translation = *wn.Translation
			n.Flags |= HasTranslation
		}
		if wn.Rotation != nil {
			n.Rotation = *wn.Rotation
			n.Flags |= HasRotation
		}
		if wn.Scale != nil {
			n.Scale = *wn.Scale
			n.Flags |= HasScale
		}
		s.Nodes[i] = n
	}

	if w.Skin != nil {
		sk := &Skin{
			Joints:              w.Skin.Joints,
			InverseBindMatrices: w.Skin.InverseBindMatrices,
			Skeleton:            -1,
		}
		if w.Skin.Skeleton != nil {
			sk.Skeleton = *w.Skin.Skeleton
		}
		// Missing inverse bind matrices default to identity.
		if sk.InverseBindMatrices == nil {
			sk.InverseBindMatrices = make([][16]float32, len(sk.Joints))
			for j := range sk.InverseBindMatrices {
				sk.InverseBindMatrices[j] = Identity
			}
		}
		s.Skin = sk
	}

	return s
}

func toWire(s *Scene) *wireScene {
	w := &wireScene{Roots: s.Roots, Nodes: make([]wireNode, len(s.Nodes))}

	for i := range s.Nodes {
		n := &s.Nodes[i]
		wn := wireNode{Name: n.Name, Children: n.Children}
		if n.Flags.Has(HasTranslation) {
			t := n.Translation
			wn.Translation = &t
		}
		if n.Flags.Has(HasRotation) {
			r := n.Rotation
			wn.Rotation = &r
		}
		if n.Flags.Has(HasScale) {
			sc := n.Scale
			wn.Scale = &sc
		}
		w.Nodes[i] = wn
	}

	if s.Skin != nil {
		w.Skin = &wireSkin{Joints: s.Skin.Joints, InverseBindMatrices: s.Skin.InverseBindMatrices}
		if s.Skin.Skeleton >= 0 {
			sk := s.Skin.Skeleton
			w.Skin.Skeleton = &sk
		}
	}
	return w
}
