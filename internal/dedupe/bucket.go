package dedupe

// BucketBySize partitions logical files by byte size and discards
// buckets that cannot contain a duplicate. No file content is read.
// Zero-byte files form a legitimate bucket: they are content-identical
// by definition.
func BucketBySize(files []*LogicalFile) map[int64][]*LogicalFile {
	buckets := make(map[int64][]*LogicalFile)
	for _, f := range files {
		buckets[f.Size] = append(buckets[f.Size], f)
	}
	for size, members := range buckets {
		if len(members) < 2 {
			delete(buckets, size)
		}
	}
	return buckets
}
