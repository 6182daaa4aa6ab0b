package cache

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// maxSegmentLen bounds a single rendered argument. Longer renderings are
// replaced by their xxhash digest so keys stay short.
const maxSegmentLen = 64

type defaultKeySerializer struct{}

// NewDefaultKeySerializer returns the serializer used for account keys.
//
// Scalars render as themselves, so the key for account 42 in the
// "account_snapshot" namespace is "account_snapshot::42" and prefix
// invalidation on "account_snapshot::" matches every account. Composite
// arguments (slices, maps, structs) and long strings are hashed.
func NewDefaultKeySerializer() KeySerializer {
	return defaultKeySerializer{}
}

func (s defaultKeySerializer) SerializeKey(namespace string, args ...any) string {
	if len(args) == 0 {
		return namespace
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, namespace)
	for _, arg := range args {
		parts = append(parts, s.segment(arg))
	}
	return strings.Join(parts, KeySeparator)
}

func (s defaultKeySerializer) segment(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		if len(x) > maxSegmentLen || strings.Contains(x, KeySeparator) {
			return digest(x)
		}
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return s.segment(x.String())
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "nil"
		}
		return s.segment(rv.Elem().Interface())
	}

	// fmt prints map keys in sorted order, which keeps the digest stable.
	return digest(fmt.Sprintf("%T:%+v", v, v))
}

func digest(s string) string {
	return "h" + strconv.FormatUint(xxhash.Sum64String(s), 16)
}
