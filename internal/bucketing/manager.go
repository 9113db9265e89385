package bucketing

import (
	"hash"
	"sync"

	"github.com/spaolacci/murmur3"

	"user-service/internal/config"
)

// BucketingManager assigns deterministic partition buckets for users and
// security events so hot partitions stay bounded. Bucket counts are fixed
// at startup; changing them reshuffles every assignment.
type BucketingManager struct {
	userBuckets  int
	eventBuckets int
	pool         sync.Pool
}

func NewBucketingManager(cfg *config.Config) *BucketingManager {
	return &BucketingManager{
		userBuckets:  cfg.Bucketing.UserBuckets,
		eventBuckets: cfg.Bucketing.EventBuckets,
		pool: sync.Pool{
			New: func() interface{} { return murmur3.New64() },
		},
	}
}

// GetUserBucket returns a stable bucket in [0, userBuckets) for a user ID.
func (bm *BucketingManager) GetUserBucket(userID string) int {
	return bm.bucket(userID, bm.userBuckets)
}

// GetEventBucket returns a stable bucket in [0, eventBuckets) for an
// audit identifier, typically a phone hash or user ID.
func (bm *BucketingManager) GetEventBucket(identifier string) int {
	return bm.bucket(identifier, bm.eventBuckets)
}

func (bm *BucketingManager) bucket(key string, n int) int {
	h := bm.pool.Get().(hash.Hash64)
	defer bm.pool.Put(h)

	h.Reset()
	h.Write([]byte(key))
	return int(h.Sum64() % uint64(n))
}
