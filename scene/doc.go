// Package scene defines the read-only scene description consumed by the
// entity store: an ordered node list with child indices, optional local
// translation/rotation/scale per node, the declared root nodes, and an
// optional skin.
//
// Scenes are usually decoded from a glTF-like JSON document:
//
//	{
//	  "roots": [0],
//	  "nodes": [
//	    {"name": "hips", "children": [1], "translation": [0, 1, 0]},
//	    {"name": "spine", "rotation": [0, 0, 0, 1]}
//	  ],
//	  "skin": {"joints": [0, 1], "inverseBindMatrices": [[...16 floats...], ...], "skeleton": 0}
//	}
//
// Absent translation, rotation or scale fields leave the corresponding flag
// unset; consumers then use identity for that component. Matrices are
// column-major, quaternions are (x, y, z, w).
//
// # Codecs
//
// Unmarshal, Decode and Marshal use Default (sonnet). The *With variants
// take any Codec; GoJSON is the alternative, selectable by name through
// CodecByName.
//
// Nothing in this module mutates a *Scene after it has been decoded.
package scene
