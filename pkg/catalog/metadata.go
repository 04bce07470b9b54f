package catalog

// Field is one key/value pair from a metadata descriptor. Keys may repeat
// for multi-valued fields (creator, subject, collection, language), so
// metadata is an ordered list rather than a map.
type Field struct {
	Key   string
	Value string
}

// Metadata is the ordered key/value view of a document's metadata descriptor.
type Metadata []Field

// First returns the first value for key, or def when absent.
func (m Metadata) First(key, def string) string {
	for _, f := range m {
		if f.Key == key {
			return f.Value
		}
	}
	return def
}

// All returns every value recorded for key, in document order.
func (m Metadata) All(key string) []string {
	var vals []string
	for _, f := range m {
		if f.Key == key {
			vals = append(vals, f.Value)
		}
	}
	return vals
}

// FileInfo is one row of the source file manifest.
type FileInfo struct {
	Name   string
	Format string
	Size   int64
	Source string
	MD5    string
	SHA1   string
	CRC32  string
}
