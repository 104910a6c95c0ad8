package portal

import "github.com/jimezsa/jobmine/internal/models"

// GroupSize spreads large result sets evenly over the pool and otherwise
// keeps the fixed batch size.
func GroupSize(n, pool, batch int) int {
	pool = max(pool, 1)
	batch = max(batch, 1)
	if n > pool*batch {
		return (n + pool - 1) / pool
	}
	return batch
}

// Partition splits ids into groups of GroupSize. The last group is padded
// with models.NoJob so every group has the same length.
func Partition(ids []models.ListingID, pool, batch int) [][]models.ListingID {
	if len(ids) == 0 {
		return nil
	}

	size := GroupSize(len(ids), pool, batch)
	groups := make([][]models.ListingID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		group := make([]models.ListingID, size)
		copy(group, ids[start:min(start+size, len(ids))])
		groups = append(groups, group)
	}
	return groups
}
