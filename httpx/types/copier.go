package types

import "github.com/jinzhu/copier"

// Copy fills dst from src by matching field names.
func Copy(dst, src interface{}) error {
	return copier.Copy(dst, src)
}

// CopySlice maps each element of src through convert.
func CopySlice[S, D any](src []S, convert func(S) D) []D {
	if src == nil {
		return nil
	}
	dst := make([]D, len(src))
	for i, s := range src {
		dst[i] = convert(s)
	}
	return dst
}
