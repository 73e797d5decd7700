package domain

import (
	"encoding/json"
	"strings"
)

// Tree is a decoded JSON document: maps, slices, strings, float64s, bools
// and nils as produced by encoding/json into an any.
type Tree = any

// DecodeTree decodes raw JSON into a Tree.
func DecodeTree(raw []byte) (Tree, error) {
	var tree Tree

	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}

	return tree, nil
}

// Lookup walks tree along path, descending through objects by key. It
// returns false as soon as a key is absent or a non-object is met.
func Lookup(tree Tree, path ...string) (any, bool) {
	current := tree

	for _, key := range path {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = object[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// LookupString returns the trimmed string at path, or false when the value
// is absent, not a string, or blank.
func LookupString(tree Tree, path ...string) (string, bool) {
	value, ok := Lookup(tree, path...)
	if !ok {
		return "", false
	}

	s, ok := value.(string)
	if !ok {
		return "", false
	}

	s = strings.TrimSpace(s)

	return s, s != ""
}

// LookupObject returns the object at path, or false when absent or not an
// object.
func LookupObject(tree Tree, path ...string) (map[string]any, bool) {
	value, ok := Lookup(tree, path...)
	if !ok {
		return nil, false
	}

	object, ok := value.(map[string]any)

	return object, ok
}

// SplitPath splits a dotted key such as "address.city" into path segments.
func SplitPath(dotted string) []string {
	if dotted == "" {
		return nil
	}

	return strings.Split(dotted, ".")
}
