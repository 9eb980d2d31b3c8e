package sequence

import (
	"iter"
	"reflect"
)

// FromAny turns a split source into a Sequence[any]. It accepts existing
// sequences, iterators, and any slice or array other than []byte. The second
// result is false when v cannot be split.
func FromAny(v any) (Sequence[any], bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case Sequence[any]:
		return t, true
	case []any:
		return FromSlice(t), true
	case Sized[any]:
		return FromCollection(t), true
	case iter.Seq[any]:
		return FromIterator(t), true
	case []byte, string:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return FromSlice(items), true
	default:
		return nil, false
	}
}
