package eager

// Unique returns every distinct key once, in order of first occurrence.
func Unique[K comparable](keys []K) []K {
	seen := make(map[K]struct{}, len(keys))
	out := make([]K, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// KeyFunc extracts a correlation key from a record. ok is false when the
// record has no key (for example a NULL foreign key); such records never pair.
type KeyFunc[M any, K comparable] func(M) (K, bool)

// Key lifts a total key function into a KeyFunc.
func Key[M any, K comparable](f func(M) K) KeyFunc[M, K] {
	return func(m M) (K, bool) {
		return f(m), true
	}
}

func collectKeys[M any, K comparable](records []M, key KeyFunc[M, K]) []K {
	keys := make([]K, 0, len(records))
	for _, record := range records {
		if k, ok := key(record); ok {
			keys = append(keys, k)
		}
	}
	return Unique(keys)
}

func indexBy[M any, K comparable](records []M, key KeyFunc[M, K]) map[K][]int {
	index := make(map[K][]int, len(records))
	for i, record := range records {
		if k, ok := key(record); ok {
			index[k] = append(index[k], i)
		}
	}
	return index
}
