// Package files discovers measurement exports on the local filesystem.
//
// Discovery resolves glob patterns against a base directory and returns
// matches sorted by path. Match additionally splits off files whose path
// contains an exclusion substring, such as the surface-model statistics
// that sit next to per-cell exports.
//
//	d := files.NewDiscovery("Data_Raw")
//	kept, skipped, err := d.Match("*/*_Shortest_Distance*.csv", []string{"vol"})
package files
