package utils

// Ptr returns a pointer to v, for optional fields set from literals.
//
//	MaxKeys: utils.Ptr(int32(1000))
func Ptr[T any](v T) *T {
	return &v
}
