package expression

import "reflect"

type attributed interface {
	attributes() []any
}

// Walk visits n and its descendants in pre-order. Returning false from visit
// skips the children of the visited node.
func Walk(n Node, visit func(Node) bool) {
	if n == nil {
		return
	}
	n = Unwrap(n)
	if !visit(n) {
		return
	}
	for _, child := range n.Children() {
		Walk(child, visit)
	}
}

// Equal reports whether two trees are structurally equal. Aliased nodes
// compare as the expression they alias.
func Equal(a, b Node) bool {
	a, b = Unwrap(a), Unwrap(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() || reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	aa, aok := a.(attributed)
	ba, bok := b.(attributed)
	if aok != bok {
		return false
	}
	if aok && !reflect.DeepEqual(aa.attributes(), ba.attributes()) {
		return false
	}
	if !aok && !reflect.DeepEqual(a, b) {
		return false
	}
	ac, bc := a.Children(), b.Children()
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if !Equal(ac[i], bc[i]) {
			return false
		}
	}
	return true
}
