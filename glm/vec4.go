package glm

type Vec4[T numeric] [4]T

// Clamp limits each component to the range [lo, hi].
func (lhs Vec4[T]) Clamp(lo, hi T) Vec4[T] {
	return Vec4[T]{
		min(max(lhs[0], lo), hi),
		min(max(lhs[1], lo), hi),
		min(max(lhs[2], lo), hi),
		min(max(lhs[3], lo), hi),
	}
}

func (lhs Vec4[T]) XYZW() (x, y, z, w T) {
	x = lhs[0]
	y = lhs[1]
	z = lhs[2]
	w = lhs[3]
	return
}
