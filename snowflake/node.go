package snowflake

import "math/rand/v2"

// randomNode 在位宽范围内均匀选择节点。不做任何协调，多个进程可能选中同一节点
func randomNode(l Layout) (datacenterID, workerID int64) {
	return rand.Int64N(l.MaxDatacenterID() + 1), rand.Int64N(l.MaxWorkerID() + 1)
}
