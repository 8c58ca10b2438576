package model

// preserveEntityProperties copies the preserved entity properties of
// target's subtree into replacement's subtree. Nodes are matched by position;
// the walk stops descending wherever the two trees differ in kind.
func preserveEntityProperties(replacement, target Node) {
	targetChildren := target.Children()
	for i, child := range replacement.Children() {
		if i >= len(targetChildren) {
			return
		}
		other := targetChildren[i]
		if child.Kind() != other.Kind() {
			continue
		}
		if e, ok := child.(*EntityNode); ok {
			t := other.(*EntityNode)
			e.SetEntity(mergePreservedProperties(e.Entity(), t.Entity()))
		}
		preserveEntityProperties(child, other)
	}
}
